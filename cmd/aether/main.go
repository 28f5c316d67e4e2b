package main

import (
	"os"

	"github.com/aetherlab/aether/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
