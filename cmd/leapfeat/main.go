// Package main provides the CLI for the leapfeat feature aggregation pipeline.
package main

import (
	"os"

	"github.com/leapstack-labs/leapfeat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
