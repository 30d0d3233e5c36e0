// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device_test

import (
	"path/filepath"
	"testing"

	"github.com/go-blockfs/blockfs/device"
	"github.com/kylelemons/godebug/pretty"
)

func roundTrip(t *testing.T, d device.Device) {
	t.Helper()

	want := make([]byte, device.SectorSize)
	for i := range want {
		want[i] = byte(i)
	}
	if err := d.WriteSector(3, want); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	got := make([]byte, device.SectorSize)
	if err := d.ReadSector(3, got); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	roundTrip(t, device.NewMemory(8))
}

func TestMemoryOutOfRange(t *testing.T) {
	d := device.NewMemory(4)
	buf := make([]byte, device.SectorSize)
	if err := d.ReadSector(4, buf); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d, err := device.OpenFile(filepath.Join(dir, "disk.img"), 8)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer d.Close()
	roundTrip(t, d)
}

func TestFileOutOfRange(t *testing.T) {
	dir := t.TempDir()
	d, err := device.OpenFile(filepath.Join(dir, "disk.img"), 4)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer d.Close()

	buf := make([]byte, device.SectorSize)
	if err := d.WriteSector(10, buf); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}
