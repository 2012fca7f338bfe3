package main

import (
	"os"

	"github.com/bioneural/spill/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
