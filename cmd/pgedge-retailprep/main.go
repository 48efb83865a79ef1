// Package main is the entry point for pgedge-retailprep.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-retailprep/internal/cli"

	// Register report engines
	_ "github.com/pgEdge/pgedge-retailprep/internal/sqlreport"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
