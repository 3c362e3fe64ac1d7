package main

import (
	"os"

	"github.com/nsing-labs/ragbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
