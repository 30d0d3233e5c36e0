// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockfs

import (
	"fmt"

	"github.com/go-blockfs/blockfs/cache"
	"github.com/go-blockfs/blockfs/device"
	"github.com/go-blockfs/blockfs/freemap"
	"github.com/go-blockfs/blockfs/inode"
)

// rootSector is the fixed sector of the filesystem's single root inode.
// A real directory layer would allocate inode sectors dynamically; this
// core stops short of that (the directory layer is out of scope, see
// SPEC_FULL.md §1) and always
// treats sector rootSector as the root.
const rootSector = 0

// System wires a Device, its free-space bitmap, a sector cache and an
// inode engine into one handle, mirroring the way nodefs.Server ties a
// RawFileSystem to a mount loop. The zero value is not usable; construct
// with Open or Format.
type System struct {
	Device  device.Device
	FreeMap *freemap.Bitmap
	Cache   *cache.Cache
	Inodes  *inode.Engine
}

// Format initializes a fresh device: reserves the root inode's sector in
// the free-map and writes a zero-length root directory inode there. It
// must be called exactly once per device before Open.
func Format(dev device.Device) (*System, error) {
	sectors := dev.Sectors()
	if sectors == 0 {
		return nil, fmt.Errorf("blockfs: device has no sectors")
	}

	fm := freemap.NewBitmap(sectors)
	fm.Reserve(rootSector)
	c := cache.New(dev, cache.DefaultSlots)
	eng := inode.NewEngine(c, fm)

	if err := eng.Create(rootSector, 0, true); err != nil {
		return nil, fmt.Errorf("blockfs: format: %w", err)
	}
	if err := c.Close(); err != nil {
		return nil, fmt.Errorf("blockfs: format: %w", err)
	}

	return Open(dev)
}

// Open wires a System over an already-formatted device. It does not
// re-validate the free-map's contents against what's actually allocated
// on disk; that bookkeeping is rebuilt at Format time only (spec
// SPEC_FULL.md Non-goals: no crash-consistent free-map recovery).
func Open(dev device.Device) (*System, error) {
	sectors := dev.Sectors()
	if sectors == 0 {
		return nil, fmt.Errorf("blockfs: device has no sectors")
	}
	fm := freemap.NewBitmap(sectors)
	fm.Reserve(rootSector)
	c := cache.New(dev, cache.DefaultSlots)
	return &System{
		Device:  dev,
		FreeMap: fm,
		Cache:   c,
		Inodes:  inode.NewEngine(c, fm),
	}, nil
}

// Root opens the root directory inode.
func (s *System) Root() *inode.OpenInode {
	return s.Inodes.Open(rootSector)
}

// CreateFile allocates a sector for a new file inode, creates it with
// the given initial length, and returns it already open. The caller is
// responsible for linking the returned inode's sector into a directory;
// this core has no directory entry format (SPEC_FULL.md §1).
func (s *System) CreateFile(length int64) (*inode.OpenInode, error) {
	sector, ok := s.FreeMap.Allocate()
	if !ok {
		return nil, fmt.Errorf("blockfs: create file: %w", inode.ErrAllocExhausted)
	}
	if err := s.Inodes.Create(sector, length, false); err != nil {
		s.FreeMap.Release(sector)
		return nil, err
	}
	return s.Inodes.Open(sector), nil
}

// Close flushes the cache and closes the underlying device if it
// supports closing.
func (s *System) Close() error {
	if err := s.Cache.Close(); err != nil {
		return err
	}
	if c, ok := s.Device.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
