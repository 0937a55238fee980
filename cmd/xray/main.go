package main

import (
	"fmt"
	"os"

	"github.com/decisionxray/xray/internal/cli"
)

// version is set at build time
var version = "0.1.0"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
