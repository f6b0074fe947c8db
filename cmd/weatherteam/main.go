// Command weatherteam runs the weather agent team from the terminal.
package main

import (
	"os"

	"github.com/hupe1980/agentteam/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
