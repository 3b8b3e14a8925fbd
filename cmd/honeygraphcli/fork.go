package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var forkCmd = &cobra.Command{
	Use: "fork",
	Short: "Inspect and manage tracked forks",
	PersistentPreRunE: cliInit,
}

var forkListCmd = &cobra.Command{
	Use: "list",
	Short: "List known forks",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cliForks.GetActiveForks(), "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var forkReconcileCmd = &cobra.Command{
	Use: "reconcile [blockNum] [consensusHash]",
	Short: "Reconcile forks at a block against a consensus hash",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		blockNum, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid blockNum: %w", err)
		}
		result := cliForks.ReconcileForks(blockNum, args[1])
		data, err := json.MarshalIndent(result, "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var forkPruneCmd = &cobra.Command{
	Use: "prune [beforeBlock]",
	Short: "Prune orphaned forks older than beforeBlock",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		beforeBlock, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid beforeBlock: %w", err)
		}
		n := cliForks.PruneForks(beforeBlock)
		fmt.Printf("pruned %d forks\n", n)
		return nil
	},
}

func init() {
	forkCmd.AddCommand(forkListCmd, forkReconcileCmd, forkPruneCmd)
}
