package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "docconvd",
		Short:   "docconvd — document conversion service with caching and dedup",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newMaintainCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
