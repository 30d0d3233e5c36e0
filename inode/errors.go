// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inode

import "errors"

// Error taxonomy, spec §7 kinds 1-3. Kind 4 (reads past EOF) is not an
// error, it is a normal clamped result; kind 5 (invariant violation) is
// fatal and panics rather than returning an error.
var (
	// ErrOutOfRange is returned by WriteAt when the offset is at or
	// beyond the triple-indirect upper bound.
	ErrOutOfRange = errors.New("inode: offset out of range")

	// ErrAllocExhausted is returned by WriteAt when the free-map cannot
	// supply a sector needed to extend the file. Bytes written before
	// the failure are retained and length still advances to cover them.
	ErrAllocExhausted = errors.New("inode: free map exhausted")

	// ErrWriteDenied is returned by WriteAt when the inode's
	// deny-write count is positive.
	ErrWriteDenied = errors.New("inode: write denied")
)
