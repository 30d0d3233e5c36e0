// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inode

import "testing"

func TestRegistryOpenDedupesAndRefcounts(t *testing.T) {
	r := newRegistry()
	oi := &OpenInode{sector: 5, openCount: 1}
	r.table[5] = oi

	got := r.open(nil, 5)
	if got != oi {
		t.Fatalf("open of an existing sector returned a different handle")
	}
	if oi.openCount != 2 {
		t.Fatalf("openCount = %d, want 2", oi.openCount)
	}
}

func TestRegistryCloseKeepsEntryUntilLastReference(t *testing.T) {
	r := newRegistry()
	oi := &OpenInode{sector: 5, openCount: 2}
	r.table[5] = oi

	r.close(&Engine{reg: r}, oi)
	if _, ok := r.table[5]; !ok {
		t.Fatalf("entry removed before last close")
	}

	r.close(&Engine{reg: r}, oi)
	if _, ok := r.table[5]; ok {
		t.Fatalf("entry still present after last close")
	}
}

func TestRegistryNegativeOpenCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unbalanced close")
		}
	}()
	r := newRegistry()
	oi := &OpenInode{sector: 5, openCount: 0}
	r.table[5] = oi
	r.close(&Engine{reg: r}, oi)
}
