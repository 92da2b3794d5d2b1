// Package main provides the lexfix command.
package main

import (
	"os"

	"github.com/leapstack-labs/lexfix/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
