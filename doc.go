// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockfs wires together a sector-addressed block device, a
// free-space bitmap, a write-back sector cache and an indexed-inode
// engine into a single small filesystem core.
//
// See the device, freemap, cache and inode packages for the individual
// layers, and cmd/blockfsdemo for an end-to-end CLI exercising them
// against both an in-memory and a file-backed device.
package blockfs
