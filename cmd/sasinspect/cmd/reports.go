package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

// reportsCmd represents the reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show stored inspection reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		env, err := openEnvironment(envOptions{storage: true})
		if err != nil {
			return err
		}
		defer env.release()

		ids, err := env.inspector.Reports(limit)
		if err != nil {
			return err
		}
		return outputReportIDs(cmd.OutOrStdout(), format, ids)
	},
}

var reportsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid report id: %w", err)
		}

		env, err := openEnvironment(envOptions{storage: true})
		if err != nil {
			return err
		}
		defer env.release()

		report, err := env.inspector.Report(id)
		if err != nil {
			return err
		}
		return outputReport(cmd.OutOrStdout(), format, report)
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsGetCmd)

	reportsListCmd.Flags().IntP("limit", "n", 20, "Maximum number of reports to list (0 for all)")
}
