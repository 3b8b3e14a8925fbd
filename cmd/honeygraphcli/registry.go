package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/disregardfiat/honeygraph/internal/registry"
)

var registryCmd = &cobra.Command{
	Use: "registry",
	Short: "Inspect and manage the network registry",
	PersistentPreRunE: cliInit,
}

var registryListCmd = &cobra.Command{
	Use: "list",
	Short: "List every registered prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cliReg.List(), "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var registryRegisterCmd = &cobra.Command{
	Use: "register [prefix] [name]",
	Short: "Register or update a prefix entry",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cliReg.Register(registry.Entry{Prefix: args[0], Name: args[1]})
	},
}

var registryRemoveCmd = &cobra.Command{
	Use: "remove [prefix]",
	Short: "Remove a prefix entry",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cliReg.Remove(args[0])
	},
}

func init() {
	registryCmd.AddCommand(registryListCmd, registryRegisterCmd, registryRemoveCmd)
}
