// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-blockfs/blockfs/cache"
	"github.com/go-blockfs/blockfs/device"
	"github.com/kylelemons/godebug/pretty"
)

func pattern(b byte) []byte {
	buf := make([]byte, device.SectorSize)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestReadAfterWrite(t *testing.T) {
	dev := device.NewMemory(4)
	c := cache.New(dev, 2)

	c.Write(0, pattern('a'))
	got := make([]byte, device.SectorSize)
	c.Read(0, got)
	if diff := pretty.Compare(pattern('a'), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteIsWriteBack(t *testing.T) {
	dev := device.NewMemory(4)
	c := cache.New(dev, 2)

	c.Write(0, pattern('a'))
	if c.WriteCount() != 0 {
		t.Fatalf("Write must not touch the device immediately, got write count %d", c.WriteCount())
	}

	raw := make([]byte, device.SectorSize)
	dev.ReadSector(0, raw)
	if diff := pretty.Compare(make([]byte, device.SectorSize), raw); diff != "" {
		t.Errorf("device should still read as zero before flush (-want +got):\n%s", diff)
	}

	c.FlushAll()
	if c.WriteCount() != 1 {
		t.Fatalf("FlushAll should write back exactly once, got %d", c.WriteCount())
	}
	dev.ReadSector(0, raw)
	if diff := pretty.Compare(pattern('a'), raw); diff != "" {
		t.Errorf("device mismatch after flush (-want +got):\n%s", diff)
	}
}

func TestEvictionPicksLargestAge(t *testing.T) {
	dev := device.NewMemory(8)
	c := cache.New(dev, 2)

	// Fill both slots: sector 0 then sector 1. Both slots now have
	// equal age relative to each other only transiently; touch sector 0
	// again so sector 1 is the oldest by a clean margin, verifying
	// fetches for new sectors evict it rather than sector 0.
	buf := make([]byte, device.SectorSize)
	c.Read(0, buf)
	c.Read(1, buf)
	c.Read(0, buf) // sector 0 touched last -> youngest

	if c.ReadCount() != 2 {
		t.Fatalf("expected 2 misses so far, got %d", c.ReadCount())
	}

	// Sector 2 is a miss and must evict sector 1 (the oldest), not 0.
	c.Read(2, buf)
	if c.ReadCount() != 3 {
		t.Fatalf("expected 3 misses, got %d", c.ReadCount())
	}

	// Sector 0 should still be resident (no new miss).
	c.Read(0, buf)
	if c.ReadCount() != 3 {
		t.Fatalf("sector 0 should still be cached, miss count grew to %d", c.ReadCount())
	}

	// Sector 1 was evicted, so reading it is a miss again.
	c.Read(1, buf)
	if c.ReadCount() != 4 {
		t.Fatalf("sector 1 should have been evicted, miss count is %d", c.ReadCount())
	}
}

func TestNoDuplicateSlotForSameSector(t *testing.T) {
	dev := device.NewMemory(8)
	c := cache.New(dev, 4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, device.SectorSize)
			c.Read(0, buf)
		}()
	}
	wg.Wait()

	// A correct cache serves all 16 concurrent reads of sector 0 from
	// one slot: at most one miss should ever have been recorded.
	if c.ReadCount() > 1 {
		t.Fatalf("expected at most one miss for concurrent reads of the same sector, got %d", c.ReadCount())
	}
}

func TestFlushAllThenFreshCachePreservesData(t *testing.T) {
	dev := device.NewMemory(4)
	c1 := cache.New(dev, 2)
	c1.Write(0, pattern('x'))
	c1.Write(1, pattern('y'))
	c1.FlushAll()

	c2 := cache.New(dev, 2)
	got := make([]byte, device.SectorSize)
	c2.Read(0, got)
	if diff := pretty.Compare(pattern('x'), got); diff != "" {
		t.Errorf("sector 0 mismatch after reopen (-want +got):\n%s", diff)
	}
	c2.Read(1, got)
	if diff := pretty.Compare(pattern('y'), got); diff != "" {
		t.Errorf("sector 1 mismatch after reopen (-want +got):\n%s", diff)
	}
}

func TestReadAheadWarmsCacheWithoutBlocking(t *testing.T) {
	dev := device.NewMemory(4)
	c := cache.New(dev, 2)

	c.ReadAhead(1)
	deadline := time.Now().Add(time.Second)
	for c.ReadCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.ReadCount() == 0 {
		t.Fatalf("ReadAhead never fetched sector 1")
	}
}
