// Package main is the entry point for the hermetia CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/hermetia/cmd/hermetiactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
