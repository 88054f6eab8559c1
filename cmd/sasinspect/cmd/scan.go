package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/inspect"
	"github.com/ssargent/sasinspect/pkg/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find and decode the SAS account a block created",
	Long: `Scan a block for createAccount instructions whose new account is owned by
the SAS program, then fetch and decode that account.

The block comes from a saved file (--block-file) or from the ledger (--slot).
The first match wins unless --all is given. With --matches-only the accounts
are listed without being fetched, which needs no network for a block file.

Examples:
  sasinspect scan --block-file response.json
  sasinspect scan --slot 345678901 --all
  sasinspect scan --block-file response.json --matches-only --owner <program>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		blockFile, _ := cmd.Flags().GetString("block-file")
		all, _ := cmd.Flags().GetBool("all")
		matchesOnly, _ := cmd.Flags().GetBool("matches-only")
		ownerFlag, _ := cmd.Flags().GetString("owner")

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		if (blockFile == "") == !cmd.Flags().Changed("slot") {
			return fmt.Errorf("exactly one of --block-file or --slot is required")
		}
		slot, _ := cmd.Flags().GetUint64("slot")

		owner := programID()
		if ownerFlag != "" {
			owner, err = codec.ParseIdentifier(ownerFlag)
			if err != nil {
				return fmt.Errorf("invalid owner: %w", err)
			}
		}

		env, err := openEnvironment(envOptions{
			program: owner,
			ledger:  !(matchesOnly && blockFile != ""),
			storage: !matchesOnly,
			publish: !matchesOnly,
		})
		if err != nil {
			return err
		}
		defer env.release()

		var block *scan.Block
		if blockFile != "" {
			block, err = scan.LoadBlockFile(blockFile)
		} else {
			block, err = env.ledger.GetBlock(cmd.Context(), slot)
		}
		if err != nil {
			return err
		}

		if matchesOnly {
			matches, err := findMatches(block, owner, all)
			if err != nil {
				return err
			}
			return outputMatches(cmd.OutOrStdout(), format, matches)
		}

		reports, err := env.inspector.InspectBlock(cmd.Context(), block, inspect.Options{All: all})
		if err != nil {
			return err
		}
		if !all {
			return outputReport(cmd.OutOrStdout(), format, reports[0])
		}
		return outputReports(cmd.OutOrStdout(), format, reports)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("block-file", "", "Read the block from a saved getBlock response")
	scanCmd.Flags().Uint64("slot", 0, "Fetch the block at this slot")
	scanCmd.Flags().String("owner", "", "Program that owns the created account (default: configured program)")
	scanCmd.Flags().Bool("all", false, "Use every matching account instead of the first")
	scanCmd.Flags().Bool("matches-only", false, "List matching accounts without fetching them")
}

func findMatches(block *scan.Block, owner codec.Identifier, all bool) ([]scan.Match, error) {
	if all {
		return scan.FindCreatedAccounts(block, owner)
	}
	m, err := scan.FindCreatedAccount(block, owner)
	if err != nil {
		return nil, err
	}
	return []scan.Match{m}, nil
}
