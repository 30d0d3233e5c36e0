// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package freemap_test

import (
	"testing"

	"github.com/go-blockfs/blockfs/freemap"
)

func TestAllocateReleaseRoundTrip(t *testing.T) {
	b := freemap.NewBitmap(4)

	var got []uint32
	for i := 0; i < 4; i++ {
		s, ok := b.Allocate()
		if !ok {
			t.Fatalf("Allocate() failed on iteration %d", i)
		}
		got = append(got, s)
	}
	if _, ok := b.Allocate(); ok {
		t.Fatalf("Allocate() should fail once exhausted")
	}

	for _, s := range got {
		b.Release(s)
	}
	if _, ok := b.Allocate(); !ok {
		t.Fatalf("Allocate() should succeed after release")
	}
}

func TestReserve(t *testing.T) {
	b := freemap.NewBitmap(2)
	b.Reserve(0)

	s, ok := b.Allocate()
	if !ok || s != 1 {
		t.Fatalf("Allocate() = %d, %v; want 1, true", s, ok)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	b := freemap.NewBitmap(2)
	s, _ := b.Allocate()
	b.Release(s)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double release")
		}
	}()
	b.Release(s)
}
