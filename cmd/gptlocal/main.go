package main

import (
	"os"

	"gptlocal/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
