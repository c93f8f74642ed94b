package main

import (
	"os"

	"github.com/unikron/shieldswap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
