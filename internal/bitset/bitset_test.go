// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitset

import "testing"

func TestFirstClear(t *testing.T) {
	s := New(70)
	for i := uint32(0); i < 65; i++ {
		s.Set(i)
	}
	got, ok := s.FirstClear()
	if !ok || got != 65 {
		t.Fatalf("FirstClear() = %d, %v; want 65, true", got, ok)
	}
}

func TestFirstClearFull(t *testing.T) {
	s := New(3)
	s.Set(0)
	s.Set(1)
	s.Set(2)
	if _, ok := s.FirstClear(); ok {
		t.Fatalf("FirstClear() should report no clear bits")
	}
}

func TestSetClearRoundTrip(t *testing.T) {
	s := New(128)
	s.Set(100)
	if !s.Test(100) {
		t.Fatalf("bit 100 should be set")
	}
	s.Clear(100)
	if s.Test(100) {
		t.Fatalf("bit 100 should be clear")
	}
}
