// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inode

// pos is the position descriptor of spec §3: the result of mapping a byte
// offset to a walk path. idx[0] indexes header.blocks; idx[1..level]
// index successive 128-entry index blocks. Only idx[0..level] are
// meaningful.
type pos struct {
	level int
	idx   [IndirectLevels + 1]uint32
	intra int
}

// singleIdx, doubleIdx, tripleIdx are the header.blocks slots for the
// three indirect roots (spec §3: blocks[12]=single, [13]=double,
// [14]=triple).
const (
	singleIdx = DirectBlocks
	doubleIdx = DirectBlocks + 1
	tripleIdx = DirectBlocks + 2
)

// getPos is a pure function of the offset (spec §4.2 "Position
// computation"): it does not read any state. It returns false iff off < 0
// or off >= the triple-indirect upper bound.
func getPos(off int64) (pos, bool) {
	if off < 0 || off >= maxFileLength {
		return pos{}, false
	}

	switch {
	case off >= doubleBytes:
		off -= doubleBytes
		var p pos
		p.level = 3
		p.idx[0] = tripleIdx
		p.idx[1] = uint32(off / (int64(PointersPerBlock) * int64(PointersPerBlock) * SectorSize))
		off -= int64(p.idx[1]) * int64(PointersPerBlock) * int64(PointersPerBlock) * SectorSize
		p.idx[2] = uint32(off / (int64(PointersPerBlock) * SectorSize))
		off -= int64(p.idx[2]) * int64(PointersPerBlock) * SectorSize
		p.idx[3] = uint32(off / SectorSize)
		p.intra = int(off % SectorSize)
		return p, true

	case off >= singleBytes:
		off -= singleBytes
		var p pos
		p.level = 2
		p.idx[0] = doubleIdx
		p.idx[1] = uint32(off / (int64(PointersPerBlock) * SectorSize))
		off -= int64(p.idx[1]) * int64(PointersPerBlock) * SectorSize
		p.idx[2] = uint32(off / SectorSize)
		p.intra = int(off % SectorSize)
		return p, true

	case off >= directBytes:
		off -= directBytes
		var p pos
		p.level = 1
		p.idx[0] = singleIdx
		p.idx[1] = uint32(off / SectorSize)
		p.intra = int(off % SectorSize)
		return p, true

	default:
		var p pos
		p.level = 0
		p.idx[0] = uint32(off / SectorSize)
		p.intra = int(off % SectorSize)
		return p, true
	}
}
