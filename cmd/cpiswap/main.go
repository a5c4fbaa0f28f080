package main

import (
	"os"

	"github.com/lugondev/go-cpiswap/cmd/cpiswap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
