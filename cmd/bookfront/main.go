package main

import (
	"os"

	"github.com/chapter-verse/bookfront/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
