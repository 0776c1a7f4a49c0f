package main

import (
	"os"

	"github.com/conneroisu/devkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
