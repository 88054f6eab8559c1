/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a bootstrap configuration",
	Long: `Write a configuration file with defaults and a generated API key.

This command will:
- Create the config file (default ~/.config/sasinspect/config.yaml)
- Generate the API key used by 'sasinspect serve'
- Create the data directory

Examples:
  sasinspect init
  sasinspect init --config ./sasinspect.yaml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		path := configPath(cmd)
		dataDir := ""
		if cmd.Flags().Changed("data-dir") {
			dataDir, _ = cmd.Flags().GetString("data-dir")
		}

		created, err := bootstrap(path, dataDir, force)
		if err != nil {
			return err
		}
		if created == nil {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		cmd.Printf("✅ Configuration written to %s\n", path)
		cmd.Printf("Data directory: %s\n", created.DataDir)
		cmd.Printf("RPC endpoint: %s\n", created.RPC.Endpoint)
		if printKey {
			cmd.Printf("API key: %s\n", created.Server.APIKey)
		}
		cmd.Printf("\nYou can now start the server with:\n")
		cmd.Printf("  sasinspect serve --config %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// bootstrap writes a new config at path. It returns nil without error when
// a config already exists and force is not set.
func bootstrap(path, dataDir string, force bool) (*config.Config, error) {
	if config.ConfigExists(path) && !force {
		return nil, nil
	}

	created, err := config.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(created.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return created, nil
}
