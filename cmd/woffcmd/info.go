package main

import (
	"fmt"
	"io/ioutil"
	"math"

	"github.com/tdewolff/woff"
)

type Info struct {
	Input string `index:"0" desc:"Input WOFF file."`
}

func (cmd *Info) Run() error {
	b, err := ioutil.ReadFile(cmd.Input)
	if err != nil {
		return err
	}

	r, err := woff.NewReader(b)
	if err != nil {
		return fmt.Errorf("%v: %v", cmd.Input, err)
	}

	version := "TrueType"
	if r.Flavor == 0x4F54544F {
		version = "CFF"
	}
	fmt.Printf("File: %s\n\n", cmd.Input)
	fmt.Printf("flavor: 0x%08X (%s)\n", r.Flavor, version)
	fmt.Printf("version: %d.%d\n", r.MajorVersion, r.MinorVersion)
	fmt.Printf("size: %s\n", formatBytes(uint64(len(b))))

	fmt.Printf("\nTable directory:\n")
	tags := r.Tags()
	nLen := int(math.Log10(float64(len(b))) + 1)
	for i, tag := range tags {
		e, _ := r.CompressedTableEntry(tag)
		fmt.Printf("  %2d  %s  offset=%*d  compLength=%*d  origLength=%*d  checksum=0x%08X\n",
			i, tag, nLen, e.Offset, nLen, e.CompLength, nLen, e.OrigLength, e.OrigChecksum)
	}

	if meta, err := r.MetadataBytes(); err == nil && meta != nil {
		fmt.Printf("\nMetadata: %s (%d bytes uncompressed)\n", formatBytes(uint64(len(meta))), len(meta))
	}
	if priv := r.PrivateData(); priv != nil {
		fmt.Printf("Private data: %s\n", formatBytes(uint64(len(priv))))
	}
	return nil
}
