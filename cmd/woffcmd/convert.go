package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"

	"github.com/tdewolff/woff"
)

type Convert struct {
	Quiet      bool     `short:"q" desc:"Suppress output except for errors."`
	Force      bool     `short:"f" desc:"Force overwriting existing files."`
	Level      int      `short:"l" name:"level" desc:"zlib compression level, 1-9 (0 selects the default, 9)."`
	NoReorder  bool     `desc:"Keep the input table order instead of the conventional OpenType layout order."`
	NoChecksum bool     `desc:"Do not recompute head.checkSumAdjustment."`
	Outputs    []string `short:"o" desc:"Output WOFF file (one per input, in order)."`
	Inputs     []string `index:"*" desc:"Input TTF/OTF/WOFF2/EOT files."`
}

func (cmd *Convert) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	}
	if len(cmd.Outputs) != 0 && len(cmd.Outputs) != len(cmd.Inputs) {
		return fmt.Errorf("number of outputs must match number of inputs")
	}

	for i, input := range cmd.Inputs {
		b, err := ioutil.ReadFile(input)
		if err != nil {
			return fmt.Errorf("%v: %v", input, err)
		}

		sfntBytes, err := woff.ToSFNT(b)
		if err != nil {
			return fmt.Errorf("%v: %v", input, err)
		}
		font, err := woff.ParseSFNT(sfntBytes)
		if err != nil {
			return fmt.Errorf("%v: %v", input, err)
		}

		var explicit string
		if len(cmd.Outputs) != 0 {
			explicit = cmd.Outputs[i]
		}
		out, err := outputPath(input, explicit, "woff", ".woff", cmd.Force)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		w := woff.NewWriter(&buf, len(font.Tags()), font.Flavor, font.MajorVersion, font.MinorVersion)
		if cmd.Level != 0 {
			w.CompressionLevel = cmd.Level
		}
		w.ReorderTables = !cmd.NoReorder
		w.RecomputeHeadChecksum = !cmd.NoChecksum
		if err := font.Save(w); err != nil {
			return fmt.Errorf("%v: %v", input, err)
		}

		if err := ioutil.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%s)\n", input, out, formatBytes(uint64(buf.Len())))
	}
	return nil
}
