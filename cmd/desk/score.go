package main

import (
	"github.com/spf13/cobra"
)

func newScoreCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the discipline rule report for open trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := a.openDesk(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := desk.Score(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				report = report.Public()
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include informational checks hidden from the dashboard")
	return cmd
}

func newPositionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Print live views of open trades with summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := a.openDesk(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ov, err := desk.Overview(cmd.Context())
			if err != nil {
				return err
			}
			ov.Report = ov.Report.Public()
			return printJSON(cmd.OutOrStdout(), ov)
		},
	}
}
