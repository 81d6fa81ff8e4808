package main

import (
	"os"

	"github.com/scdash-dev/scdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
