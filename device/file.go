// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// File is a Device backed by a fixed-size flat file, addressed with
// positioned reads/writes on the raw file descriptor. Unlike
// os.File.ReadAt/WriteAt, unix.Pread/Pwrite take no internal lock and let
// us account for short reads/writes ourselves, which matters once a
// sector read races a truncate of the backing file by another process.
//
// os.File is not itself goroutine-safe across concurrent use of its fd
// field, so File guards the fd with a mutex the same way the teacher's
// loopbackFile guards *os.File (nodefs/files.go).
type File struct {
	mu      sync.Mutex
	f       *os.File
	sectors uint32
}

// OpenFile opens (or creates) path as a flat file of exactly sectors *
// SectorSize bytes and returns a Device over it. If the file exists and
// is shorter, it is extended with zeros; if longer, only the first
// sectors*SectorSize bytes are addressable.
func OpenFile(path string, sectors uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	size := int64(sectors) * SectorSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("device: truncate %s: %w", path, err)
	}
	return &File{f: f, sectors: sectors}, nil
}

func (d *File) Sectors() uint32 {
	return d.sectors
}

func (d *File) offset(sectorNo uint32) (int64, error) {
	if sectorNo >= d.sectors {
		return 0, fmt.Errorf("device: sector %d out of range (have %d)", sectorNo, d.sectors)
	}
	return int64(sectorNo) * SectorSize, nil
}

func (d *File) ReadSector(sectorNo uint32, dst []byte) error {
	off, err := d.offset(sectorNo)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := unix.Pread(int(d.f.Fd()), dst[:SectorSize], off)
	if err != nil {
		return fmt.Errorf("device: pread sector %d: %w", sectorNo, err)
	}
	if n != SectorSize {
		return fmt.Errorf("device: short read on sector %d: got %d bytes", sectorNo, n)
	}
	return nil
}

func (d *File) WriteSector(sectorNo uint32, src []byte) error {
	off, err := d.offset(sectorNo)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := unix.Pwrite(int(d.f.Fd()), src[:SectorSize], off)
	if err != nil {
		return fmt.Errorf("device: pwrite sector %d: %w", sectorNo, err)
	}
	if n != SectorSize {
		return fmt.Errorf("device: short write on sector %d: wrote %d bytes", sectorNo, n)
	}
	return nil
}

// Close closes the backing file. It does not flush any cache
// sitting above the device; callers must call Cache.Close first.
func (d *File) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}
