package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/sqxrank/internal/app"
)

func (c *cli) newScoreCmd() *cobra.Command {
	f := &rankFlags{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank the export and print the report without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(c, cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			crit, err := f.criteria(c)
			if err != nil {
				return c.fail(ctx, "invalid criteria", err)
			}
			svc, err := c.newService()
			if err != nil {
				return c.fail(ctx, "invalid configuration", err)
			}
			rep, err := svc.Compute(ctx, service.Request{InputPath: c.cfg.InputPath, Criteria: crit})
			if err != nil {
				return c.fail(ctx, "scoring failed", err)
			}
			if f.quiet {
				return nil
			}
			return c.render(ctx, cmd, rep.Result, nil)
		},
	}
	f.register(cmd)
	return cmd
}
