// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inode

import "testing"

func TestGetPosDirectBoundary(t *testing.T) {
	p, ok := getPos(directBytes - 1)
	if !ok || p.level != 0 || p.idx[0] != DirectBlocks-1 || p.intra != SectorSize-1 {
		t.Fatalf("last direct byte: got %+v ok=%v", p, ok)
	}

	p, ok = getPos(directBytes)
	if !ok || p.level != 1 || p.idx[0] != singleIdx || p.idx[1] != 0 || p.intra != 0 {
		t.Fatalf("first single-indirect byte: got %+v ok=%v", p, ok)
	}
}

func TestGetPosSingleDoubleBoundary(t *testing.T) {
	p, ok := getPos(singleBytes - 1)
	if !ok || p.level != 1 || p.idx[0] != singleIdx || p.idx[1] != PointersPerBlock-1 {
		t.Fatalf("last single-indirect byte: got %+v ok=%v", p, ok)
	}

	p, ok = getPos(singleBytes)
	if !ok || p.level != 2 || p.idx[0] != doubleIdx || p.idx[1] != 0 || p.idx[2] != 0 {
		t.Fatalf("first double-indirect byte: got %+v ok=%v", p, ok)
	}
}

func TestGetPosDoubleTripleBoundary(t *testing.T) {
	p, ok := getPos(doubleBytes - 1)
	if !ok || p.level != 2 || p.idx[0] != doubleIdx || p.idx[1] != PointersPerBlock-1 || p.idx[2] != PointersPerBlock-1 {
		t.Fatalf("last double-indirect byte: got %+v ok=%v", p, ok)
	}

	p, ok = getPos(doubleBytes)
	if !ok || p.level != 3 || p.idx[0] != tripleIdx || p.idx[1] != 0 || p.idx[2] != 0 || p.idx[3] != 0 {
		t.Fatalf("first triple-indirect byte: got %+v ok=%v", p, ok)
	}
}

func TestGetPosOutOfRange(t *testing.T) {
	if _, ok := getPos(-1); ok {
		t.Fatalf("negative offset should be out of range")
	}
	if _, ok := getPos(maxFileLength); ok {
		t.Fatalf("offset at maxFileLength should be out of range")
	}
	if _, ok := getPos(maxFileLength - 1); !ok {
		t.Fatalf("offset at maxFileLength-1 should be in range")
	}
}
