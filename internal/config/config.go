// Package config defines the ranking tool configuration and its loader.
//
// Conventions:
// - New() returns a Config with defaults; Load layers file and env on top.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/okian/sqxrank/internal/adapters/table"
	"github.com/okian/sqxrank/internal/domain/ranking"
)

// Criterion is one weighted metric as written in the config file. Metric
// names contain dots, so criteria are a list rather than a map.
type Criterion struct {
	Metric string  `koanf:"metric"`
	Weight float64 `koanf:"weight"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// InputPath is the databank export to rank.
	InputPath string `koanf:"input_path"`

	// Delimiter separates fields of the input export; "\t" means tab.
	Delimiter string `koanf:"delimiter"`

	// OutputDelimiter separates fields of the ranked output table.
	OutputDelimiter string `koanf:"output_delimiter"`

	// OutputName is the ranked table file name, written beside the input.
	OutputName string `koanf:"output_name"`

	// XLSXOutput also writes the ranked table as a spreadsheet.
	XLSXOutput bool `koanf:"xlsx_output"`

	// DestinationDir is the subdirectory, beside the input, that receives
	// the renamed strategy files. It is emptied on every run.
	DestinationDir string `koanf:"destination_dir"`

	// StrategyExt is the extension of strategy files eligible for copying.
	StrategyExt string `koanf:"strategy_ext"`

	// TopK caps the number of ranked rows.
	TopK int `koanf:"top_k"`

	// ReportTop is the number of rows shown in the terminal report.
	ReportTop int `koanf:"report_top"`

	// Criteria are the metrics to rank by and their weights.
	Criteria []Criterion `koanf:"criteria"`

	// DefaultWeight applies to a metric named without a weight.
	DefaultWeight float64 `koanf:"default_weight"`

	// WeightTolerance bounds how far the weight sum may drift from 1.0.
	WeightTolerance float64 `koanf:"weight_tolerance"`

	// LowerIsBetter lists metrics ranked ascending.
	LowerIsBetter []string `koanf:"lower_is_better"`

	// ExcludedColumns are numeric-looking columns never offered as metrics.
	ExcludedColumns []string `koanf:"excluded_columns"`

	// MetricsTextfile, when set, receives the Prometheus text exposition
	// after each run.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are constant labels added to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBuckets are the run duration histogram buckets in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// metricName matches valid Prometheus name segments and label names.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		InputPath:       "DatabankExport.csv",
		Delimiter:       ",",
		OutputDelimiter: ",",
		OutputName:      "top_100_ponderado.csv",
		DestinationDir:  "mejores_estrategias",
		StrategyExt:     ".sqx",
		TopK:            ranking.DefaultTopK,
		ReportTop:       10,
		Criteria: []Criterion{
			{Metric: "Ret/DD Ratio (IS)", Weight: 0.5},
			{Metric: "Profit factor (IS)", Weight: 0.3},
			{Metric: "Sharpe Ratio (IS)", Weight: 0.2},
		},
		DefaultWeight:   0.1,
		WeightTolerance: 0.001,
		LowerIsBetter:   ranking.DefaultLowerIsBetter(),
		ExcludedColumns: []string{
			"Strategy Name",
			"TimeFrame (IS)",
			"Mini equity chart (IS)",
			"Mini equity chart (OOS)",
		},
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if _, err := table.ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("%w: delimiter: %w", ErrInvalidConfig, err)
	}
	if _, err := table.ParseDelimiter(c.OutputDelimiter); err != nil {
		return fmt.Errorf("%w: output_delimiter: %w", ErrInvalidConfig, err)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.ReportTop < 0 {
		return fmt.Errorf("%w: report_top must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("%w: input_path must not be empty", ErrInvalidConfig)
	}
	if c.OutputName == "" || filepath.Base(c.OutputName) != c.OutputName {
		return fmt.Errorf("%w: output_name must be a file name, got %q", ErrInvalidConfig, c.OutputName)
	}
	if c.OutputName == filepath.Base(c.InputPath) {
		return fmt.Errorf("%w: output_name %q would overwrite the input", ErrInvalidConfig, c.OutputName)
	}
	// The spreadsheet copy takes the output name with an .xlsx extension.
	if strings.EqualFold(filepath.Ext(c.OutputName), ".xlsx") {
		return fmt.Errorf("%w: output_name %q must not be a spreadsheet", ErrInvalidConfig, c.OutputName)
	}
	if c.DestinationDir == "" || c.DestinationDir == "." || c.DestinationDir == ".." ||
		filepath.Base(c.DestinationDir) != c.DestinationDir {
		return fmt.Errorf("%w: destination_dir must be a single directory name, got %q", ErrInvalidConfig, c.DestinationDir)
	}
	if c.StrategyExt == "" {
		return fmt.Errorf("%w: strategy_ext must not be empty", ErrInvalidConfig)
	}
	if c.WeightTolerance < 0 {
		return fmt.Errorf("%w: weight_tolerance must not be negative", ErrInvalidConfig)
	}
	for _, cr := range c.Criteria {
		if strings.TrimSpace(cr.Metric) == "" {
			return fmt.Errorf("%w: criteria entries need a metric name", ErrInvalidConfig)
		}
	}
	return c.validateMetrics()
}

func (c *Config) validateMetrics() error {
	for key, name := range map[string]string{
		"metrics_namespace": c.MetricsNamespace,
		"metrics_subsystem": c.MetricsSubsystem,
	} {
		if name != "" && !metricName.MatchString(name) {
			return fmt.Errorf("%w: %s %q is not a valid metric name", ErrInvalidConfig, key, name)
		}
	}
	for label := range c.MetricsLabels {
		if !metricName.MatchString(label) || strings.HasPrefix(label, "__") {
			return fmt.Errorf("%w: metrics_labels: invalid label name %q", ErrInvalidConfig, label)
		}
		if label == "outcome" || label == "kind" || label == "le" {
			return fmt.Errorf("%w: metrics_labels: %q is reserved", ErrInvalidConfig, label)
		}
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}

// RankingCriteria converts the configured criteria for the engine.
func (c *Config) RankingCriteria() ranking.Criteria {
	out := make(ranking.Criteria, len(c.Criteria))
	for i, cr := range c.Criteria {
		out[i] = ranking.Criterion{Metric: cr.Metric, Weight: cr.Weight}
	}
	return out
}

// Directions builds the direction table from LowerIsBetter.
func (c *Config) Directions() ranking.Directions {
	return ranking.NewDirections(c.LowerIsBetter)
}
