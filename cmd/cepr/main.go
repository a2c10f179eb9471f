// Command cepr resolves Brazilian postal codes (CEPs).
//
// By default lookups go through the ceprd daemon over its Unix socket;
// --direct races the providers in-process instead.
//
// Usage:
//
//	cepr lookup <cep>...       - Resolve one or more CEPs
//	cepr status                - Show daemon counters
//	cepr config init           - Write the default config file
//	cepr version               - Show version information
//
// Examples:
//
//	cepr lookup 70150-903
//	cepr lookup --direct --json 01001000 70150903
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
