package main

import (
	"os"

	"github.com/telhawk-systems/feishu-trigger/internal/cli"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
)

func main() {
	if err := cli.Execute(); err != nil {
		output.Error(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
