// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inode implements the indexed inode engine (spec §4.2): the
// on-disk inode layout, the position computation that maps a byte offset
// to a walk path through the direct/indirect block tree, the engine that
// serves ReadAt/WriteAt/Length over that tree, and the open-inode
// registry that de-duplicates opens of the same on-disk sector.
package inode

import "encoding/binary"

// Layout constants, spec §6.
const (
	SectorSize       = 512
	DirectBlocks     = 12
	PointersPerBlock = SectorSize / 4
	IndirectLevels   = 3
	Magic            = 0x494e4f44
)

// blockSlots is the number of entries in the on-disk blocks array: 12
// direct pointers plus one root each for single/double/triple indirect.
const blockSlots = DirectBlocks + IndirectLevels

// Byte boundaries of each addressing region, spec §3.
const (
	directBytes   = int64(DirectBlocks) * SectorSize
	singleBytes   = directBytes + int64(PointersPerBlock)*SectorSize
	doubleBytes   = singleBytes + int64(PointersPerBlock)*int64(PointersPerBlock)*SectorSize
	tripleBytes   = doubleBytes + int64(PointersPerBlock)*int64(PointersPerBlock)*int64(PointersPerBlock)*SectorSize
	maxFileLength = tripleBytes
)

// header is the on-disk inode (exactly one sector, spec §3).
type header struct {
	length int32
	isDir  bool
	magic  uint32
	blocks [blockSlots]uint32
}

// encode marshals h into a SectorSize-byte buffer, little-endian
// (spec §6: "endianness matches the underlying platform; little-endian is
// assumed throughout").
func (h *header) encode(buf []byte) {
	for i := range buf[:SectorSize] {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.length))
	if h.isDir {
		binary.LittleEndian.PutUint32(buf[4:8], 1)
	}
	binary.LittleEndian.PutUint32(buf[8:12], h.magic)
	for i, b := range h.blocks {
		off := 12 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], b)
	}
}

// decode unmarshals a SectorSize-byte buffer into h.
func (h *header) decode(buf []byte) {
	h.length = int32(binary.LittleEndian.Uint32(buf[0:4]))
	h.isDir = binary.LittleEndian.Uint32(buf[4:8]) != 0
	h.magic = binary.LittleEndian.Uint32(buf[8:12])
	for i := range h.blocks {
		off := 12 + i*4
		h.blocks[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
}

// indexBlock is 128 little-endian sector numbers: an index sector's
// contents, decoded into a scratch array for the walk (spec §6).
type indexBlock [PointersPerBlock]uint32

func decodeIndexBlock(buf []byte) indexBlock {
	var blk indexBlock
	for i := range blk {
		off := i * 4
		blk[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return blk
}

func (blk indexBlock) encode(buf []byte) {
	for i, p := range blk {
		off := i * 4
		binary.LittleEndian.PutUint32(buf[off:off+4], p)
	}
}
