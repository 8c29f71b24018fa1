package main

import (
	"log"
	"os"

	"github.com/tdewolff/argp"
)

var (
	Error   *log.Logger
	Warning *log.Logger
)

func main() {
	Error = log.New(os.Stderr, "ERROR: ", 0)
	Warning = log.New(os.Stderr, "WARNING: ", 0)

	cmd := argp.New("Command line toolkit for WOFF 1.0 font files")
	cmd.AddCmd(&Info{}, "info", "Print the WOFF header and table directory")
	cmd.AddCmd(&Validate{}, "validate", "Run the conformance test suite against one or more WOFF files")
	cmd.AddCmd(&Convert{}, "convert", "Convert TTF/OTF/WOFF2/EOT input into WOFF 1.0")
	cmd.Parse()
}
