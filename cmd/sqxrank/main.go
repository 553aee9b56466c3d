// Package main implements the sqxrank CLI: it ranks a StrategyQuant databank
// export by weighted metrics and collects the best strategy files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	service "github.com/okian/sqxrank/internal/app"
	"github.com/okian/sqxrank/internal/config"
	"github.com/okian/sqxrank/pkg/logger"
	"github.com/okian/sqxrank/pkg/metrics"
)

var version = "dev"

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr directly since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// cli holds the state shared by every command.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "sqxrank",
		Short: "Rank StrategyQuant strategies by weighted metrics",
		Long: `sqxrank ranks the strategies of a StrategyQuant databank export by a
weighted combination of per-metric ranks, writes the top of the ranking as a
table and copies the matching .sqx files, renamed by position, into a
destination directory beside the export.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.init,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default $SQXRANK_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.newRankCmd(),
		c.newScoreCmd(),
		c.newColumnsCmd(),
		c.newWatchCmd(),
		c.newShowCmd(),
	)
	return root
}

// init loads configuration (defaults -> optional file -> env) and applies
// the log level.
func (c *cli) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg
	c.log = logger.Named("sqxrank")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.configureMetrics()
	return nil
}

// configureMetrics rebuilds the metrics registry when the config renames
// or labels the series; the built-in names stay otherwise.
func (c *cli) configureMetrics() {
	if c.cfg.MetricsNamespace == "" && c.cfg.MetricsSubsystem == "" &&
		len(c.cfg.MetricsLabels) == 0 && len(c.cfg.MetricsBuckets) == 0 {
		return
	}
	metrics.Configure(
		metrics.WithNamespace(c.cfg.MetricsNamespace),
		metrics.WithSubsystem(c.cfg.MetricsSubsystem),
		metrics.WithCustomLabels(c.cfg.MetricsLabels),
		metrics.WithHistogramBuckets(c.cfg.MetricsBuckets),
	)
}

// newService builds the pipeline service from the loaded configuration.
func (c *cli) newService() (*service.Service, error) {
	return service.New(
		service.WithLogger(logger.Get()),
		service.WithDelimiter(c.cfg.Delimiter),
		service.WithOutputDelimiter(c.cfg.OutputDelimiter),
		service.WithOutputName(c.cfg.OutputName),
		service.WithDestinationDir(c.cfg.DestinationDir),
		service.WithStrategyExt(c.cfg.StrategyExt),
		service.WithTopK(c.cfg.TopK),
		service.WithDirections(c.cfg.Directions()),
		service.WithXLSX(c.cfg.XLSXOutput),
		service.WithExcludedColumns(c.cfg.ExcludedColumns),
	)
}

// exportMetrics writes the metrics textfile when one is configured.
func (c *cli) exportMetrics(ctx context.Context) {
	if c.cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(c.cfg.MetricsTextfile); err != nil {
		c.log.Warn(ctx, "metrics textfile not written",
			logger.String("path", c.cfg.MetricsTextfile), logger.Error(err))
	}
}

// fail logs err with its kind and returns it for cobra to print.
func (c *cli) fail(ctx context.Context, msg string, err error) error {
	c.log.Error(ctx, msg, logger.String("kind", service.KindOf(err)), logger.Error(err))
	return err
}
