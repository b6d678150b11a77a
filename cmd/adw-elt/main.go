// Package main is the entry point for the adw-elt binary.
package main

import (
	"os"

	"github.com/cuderbk/adw-elt-pipeline/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
