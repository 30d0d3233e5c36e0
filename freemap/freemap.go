// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package freemap is the free-space bitmap allocator: the external
// collaborator the inode engine and cache call to obtain or release a
// single sector. The cache and inode engine never request more than one
// sector at a time (spec §6), so Allocator's contract is deliberately
// narrow.
package freemap

import (
	"fmt"
	"sync"

	"github.com/go-blockfs/blockfs/internal/bitset"
)

// Allocator allocates and releases single sectors on the backing device.
// Implementations must be safe for concurrent use.
type Allocator interface {
	// Allocate reserves one free sector and returns its number. ok is
	// false if no sector is free.
	Allocate() (sectorNo uint32, ok bool)

	// Release returns sectorNo to the free pool. Releasing a sector that
	// is already free is a bug in the caller and panics.
	Release(sectorNo uint32)
}

// Bitmap is an Allocator backed by one bit per sector, scanned linearly
// for the lowest-numbered free bit. This mirrors the shape of the sector
// cache's own slot table (a small fixed-size structure behind one lock)
// rather than anything more elaborate; neither the cache nor the inode
// engine ever requests a multi-sector run, so a free-list-of-extents
// allocator has no caller in this module.
type Bitmap struct {
	mu   sync.Mutex
	bits *bitset.Set
}

var _ Allocator = (*Bitmap)(nil)

// NewBitmap returns a Bitmap tracking sectors [0, sectors). All sectors
// start free; callers that reserve fixed sectors (e.g. a superblock)
// should call Reserve before handing the Bitmap to anything else.
func NewBitmap(sectors uint32) *Bitmap {
	return &Bitmap{bits: bitset.New(sectors)}
}

// Reserve marks sectorNo as already in use, without going through
// Allocate. Used once at format time for fixed metadata sectors.
func (b *Bitmap) Reserve(sectorNo uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bits.Set(sectorNo)
}

func (b *Bitmap) Allocate() (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.bits.FirstClear()
	if !ok {
		return 0, false
	}
	b.bits.Set(i)
	return i, true
}

func (b *Bitmap) Release(sectorNo uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sectorNo >= b.bits.Len() {
		panic(fmt.Sprintf("freemap: release of out-of-range sector %d", sectorNo))
	}
	if !b.bits.Test(sectorNo) {
		panic(fmt.Sprintf("freemap: double release of sector %d", sectorNo))
	}
	b.bits.Clear(sectorNo)
}
