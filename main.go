package main

import (
	"os"

	"github.com/kmori/trailmap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
