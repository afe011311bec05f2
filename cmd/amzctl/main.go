// Package main is the entry point for the amzctl CLI client.
package main

import (
	"github.com/sellerops/amazon-connector/cmd/amzctl/cmd"
)

func main() {
	cmd.Execute()
}
