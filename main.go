package main

import (
	"os"

	"github.com/spigell/affinity-suggest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
