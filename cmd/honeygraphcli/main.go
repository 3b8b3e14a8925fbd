// Command honeygraphcli is the operational CLI: fork, checkpoint, and
// registry inspection/administration against a running honeygraph
// deployment's shared store and data files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "honeygraphcli", Short: "Operate a honeygraph deployment"}
	rootCmd.AddCommand(forkCmd, checkpointCmd, registryCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
