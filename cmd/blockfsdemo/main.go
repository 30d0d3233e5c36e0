// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command blockfsdemo formats a block device (in memory, or the flat file
// named by -path), writes a string to a
// newly created inode, and reads it back, exercising the device, cache
// and inode layers end to end.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/go-blockfs/blockfs"
	"github.com/go-blockfs/blockfs/device"
)

func main() {
	path := flag.String("path", "", "backing file for the device; empty uses an in-memory device")
	sectors := flag.Uint("sectors", 4096, "device size in sectors")
	text := flag.String("write", "hello, blockfs", "text to write to a freshly created file")
	flag.Parse()

	var dev device.Device
	if *path == "" {
		dev = device.NewMemory(uint32(*sectors))
	} else {
		f, err := device.OpenFile(*path, uint32(*sectors))
		if err != nil {
			log.Fatalf("open device: %v", err)
		}
		defer f.Close()
		dev = f
	}

	sys, err := blockfs.Format(dev)
	if err != nil {
		log.Fatalf("format: %v", err)
	}

	file, err := sys.CreateFile(0)
	if err != nil {
		log.Fatalf("create file: %v", err)
	}
	if _, err := sys.Inodes.WriteAt(file, []byte(*text), 0); err != nil {
		log.Fatalf("write: %v", err)
	}
	sector := file.GetInumber()
	sys.Inodes.Close(file)

	reopened := sys.Inodes.Open(sector)
	got := make([]byte, len(*text))
	sys.Inodes.ReadAt(reopened, got, 0)
	sys.Inodes.Close(reopened)

	if err := sys.Close(); err != nil {
		log.Fatalf("close: %v", err)
	}

	fmt.Printf("wrote %d bytes to inode sector %d, read back: %q\n", len(*text), sector, got)
	fmt.Printf("cache reads=%d writes=%d\n", sys.Cache.ReadCount(), sys.Cache.WriteCount())
}
