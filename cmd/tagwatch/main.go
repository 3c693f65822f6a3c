// Package main is the entry point for the tagwatch CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/tagwatch/cmd/tagwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
