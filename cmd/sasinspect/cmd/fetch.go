package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <address> [address...]",
	Short: "Fetch and decode SAS accounts",
	Long: `Fetch one or more accounts over JSON-RPC and decode them.

Accounts are read from the local cache when present unless --no-cache is
given. Every decoded account is stored as a report.

Examples:
  sasinspect fetch 5Xq...
  sasinspect fetch --no-cache --format json 5Xq... 7Ab...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCache, _ := cmd.Flags().GetBool("no-cache")

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		addresses, err := parseAddresses(args)
		if err != nil {
			return err
		}

		env, err := openEnvironment(envOptions{ledger: true, storage: true, publish: true})
		if err != nil {
			return err
		}
		defer env.release()

		reports, err := env.inspector.InspectAccounts(cmd.Context(), addresses, inspect.Options{SkipCache: noCache})
		if err != nil {
			return err
		}

		if len(reports) == 1 {
			return outputReport(cmd.OutOrStdout(), format, reports[0])
		}
		return outputReports(cmd.OutOrStdout(), format, reports)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Bool("no-cache", false, "Always fetch from the ledger")
}

func parseAddresses(args []string) ([]codec.Identifier, error) {
	addresses := make([]codec.Identifier, 0, len(args))
	for _, arg := range args {
		id, err := codec.ParseIdentifier(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", arg, err)
		}
		addresses = append(addresses, id)
	}
	return addresses, nil
}
