package main

import (
	"os"

	"github.com/garyjia/design-bureau/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
