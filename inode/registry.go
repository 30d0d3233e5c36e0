// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inode

import (
	"fmt"
	"sync"
)

// OpenInode is the in-memory open-inode (spec §3 "In-memory open-inode"):
// a cached copy of the on-disk header plus the bookkeeping the engine and
// registry need. There is exactly one OpenInode per disk sector across
// the process (registry uniqueness, spec §3 invariant).
//
// mu serializes ReadAt/WriteAt/DenyWrite/AllowWrite/Remove against each
// other for this inode. The source leaves per-inode concurrency to the
// caller (spec §9, open question); this resolves it in favor of an
// explicit lock, the same role nodefs.Inode.mu plays for the mutable
// lookupCount/children/nodeID fields of a FUSE inode.
type OpenInode struct {
	sector uint32

	mu             sync.Mutex
	hdr            header
	openCount      int
	denyWriteCount int
	removed        bool
}

// GetInumber returns the disk sector backing this inode. It never
// changes for the lifetime of the OpenInode, so it is safe to read
// without locking.
func (oi *OpenInode) GetInumber() uint32 {
	return oi.sector
}

// Length returns the cached length.
func (oi *OpenInode) Length() int64 {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	return int64(oi.hdr.length)
}

// IsDir reports the directory flag.
func (oi *OpenInode) IsDir() bool {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	return oi.hdr.isDir
}

// DenyWrite increments the deny-write counter. It asserts the counter
// does not exceed openCount (spec §4.2, an invariant violation is
// fatal).
func (oi *OpenInode) DenyWrite() {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	oi.denyWriteCount++
	if oi.denyWriteCount > oi.openCount {
		panic(fmt.Sprintf("inode: deny_write_count %d exceeds open_count %d on sector %d", oi.denyWriteCount, oi.openCount, oi.sector))
	}
}

// AllowWrite decrements the deny-write counter. It asserts the counter
// is positive.
func (oi *OpenInode) AllowWrite() {
	oi.mu.Lock()
	defer oi.mu.Unlock()
	if oi.denyWriteCount <= 0 {
		panic(fmt.Sprintf("inode: allow_write on sector %d with deny_write_count %d", oi.sector, oi.denyWriteCount))
	}
	oi.denyWriteCount--
}

// registry is the open-inode registry (C5): a process-wide table keyed
// by disk sector, de-duplicating opens via reference counting. Grounded
// directly on nodefs.rawBridge.nodes (a map[uint64]*Inode behind
// rawBridge.mu, nodefs/bridge.go) and its newInode dedupe-on-insert
// check ("old := b.nodes[id.Ino]; if old != nil { return old }"), and on
// Inode.Forgotten/lookupCount (nodefs/inode.go) driving teardown once the
// last reference drops.
type registry struct {
	mu    sync.Mutex
	table map[uint32]*OpenInode
}

func newRegistry() *registry {
	return &registry{table: make(map[uint32]*OpenInode)}
}

// open returns the OpenInode for sector, incrementing its open count, or
// creates and inserts a fresh one (reading the on-disk header through
// the cache) if sector has no entry yet.
func (r *registry) open(e *Engine, sector uint32) *OpenInode {
	r.mu.Lock()
	defer r.mu.Unlock()

	if oi, ok := r.table[sector]; ok {
		oi.mu.Lock()
		oi.openCount++
		oi.mu.Unlock()
		return oi
	}

	buf := make([]byte, SectorSize)
	e.cache.Read(sector, buf)
	oi := &OpenInode{sector: sector, openCount: 1}
	oi.hdr.decode(buf)
	if oi.hdr.magic != Magic {
		panic(fmt.Sprintf("inode: sector %d has bad magic %#x, want %#x", sector, oi.hdr.magic, uint32(Magic)))
	}
	r.table[sector] = oi
	return oi
}

// close decrements oi's open count. On the last close it removes oi from
// the registry and, if oi was marked removed, releases its block tree
// and inode sector via the engine's free-map.
func (r *registry) close(e *Engine, oi *OpenInode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oi.mu.Lock()
	oi.openCount--
	if oi.openCount < 0 {
		oi.mu.Unlock()
		panic(fmt.Sprintf("inode: negative open_count on sector %d", oi.sector))
	}
	last := oi.openCount == 0
	removed := oi.removed
	oi.mu.Unlock()

	if !last {
		return
	}
	delete(r.table, oi.sector)
	if removed {
		e.releaseTree(oi)
	}
}
