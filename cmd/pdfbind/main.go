package main

import (
	"os"

	"github.com/wudi/pdfbind/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
