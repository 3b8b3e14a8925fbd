package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use: "checkpoint",
	Short: "Create, list, and roll back snapshot checkpoints",
	PersistentPreRunE: cliInit,
}

var checkpointCreateCmd = &cobra.Command{
	Use: "create [blockNum] [tag]",
	Short: "Create a checkpoint at blockNum",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		blockNum, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid blockNum: %w", err)
		}
		cp, err := cliSnaps.CreateCheckpoint(context.Background(), blockNum, args[1])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cp, "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var checkpointListCmd = &cobra.Command{
	Use: "list",
	Short: "List tracked checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cliSnaps.ListCheckpoints(), "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var checkpointRollbackCmd = &cobra.Command{
	Use: "rollback [blockNum]",
	Short: "Roll back to the checkpoint at blockNum",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blockNum, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid blockNum: %w", err)
		}
		return cliSnaps.RollbackToCheckpoint(context.Background(), blockNum)
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointCreateCmd, checkpointListCmd, checkpointRollbackCmd)
}
