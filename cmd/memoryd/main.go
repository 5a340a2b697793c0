package main

import (
	"os"

	"github.com/nanobot-ai/memory/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
