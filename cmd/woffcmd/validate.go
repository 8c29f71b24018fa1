package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/tdewolff/woff"
)

type Validate struct {
	Quiet  bool     `short:"q" desc:"Suppress output except for errors."`
	Force  bool     `short:"f" desc:"Force overwriting existing report files."`
	Dir    string   `short:"d" desc:"Write one <stem>_validate.txt report per input into this directory."`
	Output string   `short:"o" desc:"Write a single report to this file instead of stdout."`
	Inputs []string `index:"*" desc:"Input WOFF files."`
}

func (cmd *Validate) Run() error {
	if cmd.Quiet {
		Warning = log.New(ioutil.Discard, "", 0)
	}
	if len(cmd.Inputs) == 0 {
		return fmt.Errorf("input file names not set")
	}

	anyErrors := false
	var outPath string
	for _, input := range cmd.Inputs {
		b, err := ioutil.ReadFile(input)
		if err != nil {
			Error.Println(err)
			anyErrors = true
			continue
		}

		report := woff.Validate(b)
		if report.HasErrors() {
			anyErrors = true
		}
		text := formatReport(input, report)

		switch {
		case cmd.Dir != "":
			stem := filepath.Base(input)
			if ext := filepath.Ext(stem); ext != "" {
				stem = stem[:len(stem)-len(ext)]
			}
			path, err := outputPath(input, filepath.Join(cmd.Dir, stem+"_validate.txt"), "validate", ".txt", cmd.Force)
			if err != nil {
				return err
			}
			if err := ioutil.WriteFile(path, []byte(text), 0644); err != nil {
				return err
			}
		case cmd.Output != "":
			flag := os.O_APPEND | os.O_CREATE | os.O_WRONLY
			if outPath == "" {
				path, err := outputPath(input, cmd.Output, "validate", ".txt", cmd.Force)
				if err != nil {
					return err
				}
				outPath = path
				flag |= os.O_TRUNC
			}
			w, err := os.OpenFile(outPath, flag, 0644)
			if err != nil {
				return err
			}
			_, werr := w.WriteString(text)
			if cerr := w.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				return werr
			}
		default:
			fmt.Print(text)
		}
	}

	if anyErrors {
		return fmt.Errorf("one or more input files failed validation")
	}
	return nil
}

func formatReport(input string, report *woff.Report) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "File: %s\n", input)
	for _, g := range report.Groups {
		fmt.Fprintf(&buf, "\n%s\n", g.Title)
		if len(g.Findings) == 0 {
			fmt.Fprintf(&buf, "  (no findings)\n")
			continue
		}
		for _, f := range g.Findings {
			if f.Info != "" {
				fmt.Fprintf(&buf, "  %-9s %s (%s)\n", f.Kind, f.Message, f.Info)
			} else {
				fmt.Fprintf(&buf, "  %-9s %s\n", f.Kind, f.Message)
			}
		}
	}
	if report.HaveReadError {
		fmt.Fprintf(&buf, "\nvalidation stopped early: a structural test failed\n")
	}
	if report.HasErrors() {
		fmt.Fprintf(&buf, "\nresult: FAIL\n")
	} else {
		fmt.Fprintf(&buf, "\nresult: PASS\n")
	}
	return buf.String()
}
