// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device defines the block device port: synchronous, fixed-size
// sector reads and writes. Sector size is always 512 bytes. Device I/O is
// assumed infallible by the cache that sits on top of it; an
// implementation should panic rather than return a spurious success on
// unrecoverable media errors.
package device

// SectorSize is the fixed size of one sector, in bytes.
const SectorSize = 512

// Device is the contract the cache consumes for sector-level I/O. All
// methods must be safe for concurrent use.
type Device interface {
	// ReadSector copies SectorSize bytes from sector sectorNo into dst.
	// len(dst) must be >= SectorSize.
	ReadSector(sectorNo uint32, dst []byte) error

	// WriteSector copies SectorSize bytes from src into sector sectorNo.
	// len(src) must be >= SectorSize.
	WriteSector(sectorNo uint32, src []byte) error

	// Sectors returns the total number of addressable sectors.
	Sectors() uint32
}
