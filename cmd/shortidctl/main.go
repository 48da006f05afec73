package main

import (
	"os"

	"dcim-inventory-backend/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(cli.NewPrinter(), cli.OpenApp)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
