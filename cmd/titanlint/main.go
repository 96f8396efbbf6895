package main

import (
	"os"

	"github.com/jenian/titanlint/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
