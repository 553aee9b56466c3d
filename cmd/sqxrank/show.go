package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

func (c *cli) newShowCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "show [ranked-table]",
		Short: "Print the report for a ranked table written by rank",
		Long: `Print the report for a ranked table written by rank. Without an argument
the table is looked up beside input_path under output_name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := filepath.Join(filepath.Dir(c.cfg.InputPath), c.cfg.OutputName)
			if len(args) == 1 {
				path = args[0]
			}
			if top > 0 {
				c.cfg.ReportTop = top
			}

			svc, err := c.newService()
			if err != nil {
				return c.fail(ctx, "invalid configuration", err)
			}
			res, err := svc.ReadRanked(ctx, path)
			if err != nil {
				return c.fail(ctx, "reading ranked table failed", err)
			}
			return c.render(ctx, cmd, res, nil)
		},
	}
	cmd.Flags().IntVar(&top, "report-top", 0, "rows shown in the report (default report_top)")
	return cmd
}
