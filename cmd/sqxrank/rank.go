package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/sqxrank/internal/app"
	"github.com/okian/sqxrank/internal/domain/ranking"
	"github.com/okian/sqxrank/internal/report"
)

// rankFlags are the per-invocation overrides shared by rank, score and watch.
type rankFlags struct {
	input           string
	delimiter       string
	outputDelimiter string
	metrics         []string
	topK            int
	reportTop       int
	xlsx            bool
	quiet           bool
}

func (f *rankFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "databank export to rank (default input_path)")
	fl.StringVarP(&f.delimiter, "delimiter", "d", "", `input field delimiter, "\t" for tab (default delimiter)`)
	fl.StringVar(&f.outputDelimiter, "output-delimiter", "", "ranked table field delimiter (default output_delimiter)")
	fl.StringArrayVarP(&f.metrics, "metric", "m", nil, `metric to rank by as "name=weight"; repeat per metric (default criteria)`)
	fl.IntVar(&f.topK, "top", 0, "rows kept in the ranked table (default top_k)")
	fl.IntVar(&f.reportTop, "report-top", 0, "rows shown in the report (default report_top)")
	fl.BoolVar(&f.xlsx, "xlsx", false, "also write the ranked table as .xlsx")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not print the report")
}

// apply overrides the loaded config with the given flags and validates
// the result again.
func (f *rankFlags) apply(c *cli, cmd *cobra.Command) error {
	if f.input != "" {
		c.cfg.InputPath = f.input
	}
	if f.delimiter != "" {
		c.cfg.Delimiter = f.delimiter
	}
	if f.outputDelimiter != "" {
		c.cfg.OutputDelimiter = f.outputDelimiter
	}
	if f.topK > 0 {
		c.cfg.TopK = f.topK
	}
	if f.reportTop > 0 {
		c.cfg.ReportTop = f.reportTop
	}
	if cmd.Flags().Changed("xlsx") {
		c.cfg.XLSXOutput = f.xlsx
	}
	return c.cfg.Validate()
}

// criteria resolves the metric flags, or the configured criteria when no
// flag was given, and checks the weights sum to 1.
func (f *rankFlags) criteria(c *cli) (ranking.Criteria, error) {
	crit := c.cfg.RankingCriteria()
	if len(f.metrics) > 0 {
		crit = make(ranking.Criteria, 0, len(f.metrics))
		for _, raw := range f.metrics {
			cr, err := parseMetric(raw, c.cfg.DefaultWeight)
			if err != nil {
				return nil, err
			}
			crit = append(crit, cr)
		}
	}
	if err := crit.CheckWeights(c.cfg.WeightTolerance); err != nil {
		return nil, err
	}
	return crit, nil
}

// parseMetric reads "name=weight"; a bare name takes defaultWeight. The
// last '=' separates the weight so names may contain '='.
func parseMetric(raw string, defaultWeight float64) (ranking.Criterion, error) {
	name, weight := raw, defaultWeight
	if i := strings.LastIndex(raw, "="); i >= 0 {
		w, err := strconv.ParseFloat(strings.TrimSpace(raw[i+1:]), 64)
		if err != nil {
			return ranking.Criterion{}, fmt.Errorf("metric %q: invalid weight: %w", raw, err)
		}
		name, weight = raw[:i], w
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ranking.Criterion{}, fmt.Errorf("metric %q: empty name", raw)
	}
	return ranking.Criterion{Metric: name, Weight: weight}, nil
}

func (c *cli) newRankCmd() *cobra.Command {
	f := &rankFlags{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the export, write the table and copy the best strategies",
		Long: `Rank the databank export, write the top of the ranking beside it and
replace the contents of the destination directory with the matching strategy
files, renamed "NN_<strategy>.sqx" by position.

Examples:
  # Rank with the configured criteria
  sqxrank rank -i DatabankExport.csv -d ";"

  # Rank by two metrics
  sqxrank rank -m "Net profit (IS)=0.6" -m "Drawdown (IS)=0.4"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(c, cmd); err != nil {
				return err
			}
			return c.rank(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) rank(cmd *cobra.Command, f *rankFlags) error {
	ctx := cmd.Context()
	defer c.exportMetrics(ctx)

	crit, err := f.criteria(c)
	if err != nil {
		return c.fail(ctx, "invalid criteria", err)
	}
	svc, err := c.newService()
	if err != nil {
		return c.fail(ctx, "invalid configuration", err)
	}

	rep, err := svc.Run(ctx, service.Request{InputPath: c.cfg.InputPath, Criteria: crit})
	if err != nil {
		return c.fail(ctx, "ranking failed", err)
	}
	if f.quiet {
		return nil
	}
	return c.render(ctx, cmd, rep.Result, &report.Summary{
		OutputPath:  rep.OutputPath,
		XLSXPath:    rep.XLSXPath,
		Destination: rep.Destination,
		Copied:      len(rep.Copies),
		Unmatched:   rep.Unmatched,
	})
}

func (c *cli) render(_ context.Context, cmd *cobra.Command, res *ranking.Result, sum *report.Summary) error {
	r := report.New(
		report.WithTop(c.cfg.ReportTop),
		report.WithLowerIsBetter(c.cfg.Directions().LowerIsBetterMetrics()),
	)
	return r.Render(cmd.OutOrStdout(), res, sum)
}
