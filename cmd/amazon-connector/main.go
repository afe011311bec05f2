// Package main is the entry point for the amazon-connector server.
package main

import (
	"os"

	"github.com/sellerops/amazon-connector/cmd/amazon-connector/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
