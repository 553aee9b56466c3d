package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newColumnsCmd() *cobra.Command {
	var input, delimiter string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the numeric columns that can be used as metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input != "" {
				c.cfg.InputPath = input
			}
			if delimiter != "" {
				c.cfg.Delimiter = delimiter
			}
			ctx := cmd.Context()

			svc, err := c.newService()
			if err != nil {
				return c.fail(ctx, "invalid configuration", err)
			}
			cols, err := svc.Columns(ctx, c.cfg.InputPath)
			if err != nil {
				return c.fail(ctx, "reading columns failed", err)
			}
			out := cmd.OutOrStdout()
			for _, col := range cols {
				if _, err := fmt.Fprintln(out, col); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "databank export (default input_path)")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "input field delimiter (default delimiter)")
	return cmd
}
