// Package main provides the entrypoint for breach-alert-app.
package main

import (
	"os"

	"github.com/opsvector/breach-alert-app/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
