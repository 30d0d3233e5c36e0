// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"sync"
)

// Memory is an in-memory Device backed by a flat slab of sectors. It is
// used by tests and by blockfsdemo when run without -path; it never
// touches the filesystem.
type Memory struct {
	mu      sync.RWMutex
	sectors [][SectorSize]byte
}

// NewMemory allocates an in-memory device with the given sector count.
// All sectors start zeroed.
func NewMemory(sectors uint32) *Memory {
	return &Memory{sectors: make([][SectorSize]byte, sectors)}
}

func (d *Memory) Sectors() uint32 {
	return uint32(len(d.sectors))
}

func (d *Memory) ReadSector(sectorNo uint32, dst []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if sectorNo >= uint32(len(d.sectors)) {
		return fmt.Errorf("device: sector %d out of range (have %d)", sectorNo, len(d.sectors))
	}
	copy(dst, d.sectors[sectorNo][:])
	return nil
}

func (d *Memory) WriteSector(sectorNo uint32, src []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sectorNo >= uint32(len(d.sectors)) {
		return fmt.Errorf("device: sector %d out of range (have %d)", sectorNo, len(d.sectors))
	}
	copy(d.sectors[sectorNo][:], src)
	return nil
}
