// Package report renders a ranked table for the terminal: the leading rows
// as a table, one bar chart per selected metric, a stacked chart of the
// normalized metrics and a score sparkline.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/okian/sqxrank/internal/domain/ranking"
)

const (
	defaultTop      = 10
	defaultWidth    = 72
	sparklineHeight = 3
	missingCell     = "-"
	labelPrecision  = 4
)

// Lipgloss styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	tableHeaderStyle = cellStyle.
				Foreground(lipgloss.Color("51")).
				Bold(true)

	// Bar colors cycle across metrics.
	barColors = []lipgloss.Color{"51", "213", "226", "46", "208", "141", "196", "39"}
)

// Summary carries what a full run did; nil for compute-only output.
type Summary struct {
	OutputPath  string
	XLSXPath    string
	Destination string
	Copied      int
	Unmatched   []string
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithTop sets how many leading rows the report shows.
func WithTop(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.top = n
		}
	}
}

// WithWidth sets the chart width in cells.
func WithWidth(w int) Option {
	return func(r *Renderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// WithLowerIsBetter sets the metric names listed as lower-is-better.
func WithLowerIsBetter(metrics []string) Option {
	return func(r *Renderer) {
		r.lowerIsBetter = metrics
	}
}

// Renderer writes terminal reports.
type Renderer struct {
	top           int
	width         int
	lowerIsBetter []string
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{top: defaultTop, width: defaultWidth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the report for res to w.
func (r *Renderer) Render(w io.Writer, res *ranking.Result, sum *Summary) error {
	head := res.Head(r.top)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Top %d of %d strategies", len(head), res.Total)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Ranking"))
	b.WriteString("\n")
	b.WriteString(r.table(res, head))
	b.WriteString("\n")

	if len(head) > 0 {
		for i, metric := range res.Metrics {
			b.WriteString(sectionStyle.Render(metricTitle(metric, r.ascending(res, i))))
			b.WriteString("\n")
			b.WriteString(r.metricChart(res, i))
			b.WriteString("\n")
		}

		b.WriteString(sectionStyle.Render("Normalized metrics (0..1, stacked)"))
		b.WriteString("\n")
		b.WriteString(r.legend(res.Metrics))
		b.WriteString("\n")
		b.WriteString(r.normalizedChart(res, head))
		b.WriteString("\n")

		b.WriteString(sectionStyle.Render("Score by position"))
		b.WriteString("\n")
		b.WriteString(r.scoreSparkline(head))
		b.WriteString("\n")
	}

	b.WriteString(r.info(sum))

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) table(res *ranking.Result, head []ranking.Entry) string {
	headers := make([]string, 0, len(res.Metrics)+3)
	headers = append(headers, "Pos", "ID")
	headers = append(headers, res.Metrics...)
	headers = append(headers, "Score")

	rows := make([][]string, 0, len(head))
	for _, e := range head {
		row := make([]string, 0, len(headers))
		row = append(row, strconv.Itoa(e.Position), e.ID)
		for _, v := range e.Values {
			row = append(row, formatValue(v))
		}
		row = append(row, formatValue(e.Score))
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(axisStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		})
	return t.String()
}

// metricChart draws the best r.top entries of the whole table by the raw
// metric, best first.
func (r *Renderer) metricChart(res *ranking.Result, idx int) string {
	ordered := ranking.TopByMetric(res.Entries, idx, r.top, r.ascending(res, idx))

	raw := make([]float64, len(ordered))
	for i, e := range ordered {
		raw[i] = e.Values[idx]
	}
	lengths := barLengths(raw)

	style := lipgloss.NewStyle().Foreground(barColors[idx%len(barColors)])
	data := make([]barchart.BarData, len(ordered))
	for i, e := range ordered {
		data[i] = barchart.BarData{
			Label: fmt.Sprintf("%02d %s", e.Position, formatValue(raw[i])),
			Values: []barchart.BarValue{
				{Name: e.ID, Value: lengths[i], Style: style},
			},
		}
	}
	return r.barChart(data, maxOf(lengths))
}

// normalizedChart stacks every metric, min-max normalized, per entry.
func (r *Renderer) normalizedChart(res *ranking.Result, head []ranking.Entry) string {
	columns := make([][]float64, len(res.Metrics))
	for m := range res.Metrics {
		columns[m] = Normalize(head, m)
	}

	data := make([]barchart.BarData, len(head))
	for i, e := range head {
		values := make([]barchart.BarValue, len(res.Metrics))
		for m, metric := range res.Metrics {
			values[m] = barchart.BarValue{
				Name:  metric,
				Value: columns[m][i],
				Style: lipgloss.NewStyle().Foreground(barColors[m%len(barColors)]),
			}
		}
		data[i] = barchart.BarData{Label: fmt.Sprintf("%02d", e.Position), Values: values}
	}
	return r.barChart(data, float64(len(res.Metrics)))
}

func (r *Renderer) barChart(data []barchart.BarData, maxValue float64) string {
	if maxValue <= 0 {
		maxValue = 1
	}
	chart := barchart.New(r.width, len(data),
		barchart.WithDataSet(data),
		barchart.WithHorizontalBars(),
		barchart.WithBarWidth(1),
		barchart.WithBarGap(0),
		barchart.WithMaxValue(maxValue),
		barchart.WithStyles(axisStyle, labelStyle),
	)
	chart.Draw()
	return chart.View()
}

func (r *Renderer) scoreSparkline(head []ranking.Entry) string {
	spark := sparkline.New(r.width, sparklineHeight)
	for _, e := range head {
		if math.IsNaN(e.Score) {
			spark.Push(0)
			continue
		}
		spark.Push(e.Score)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

func (r *Renderer) legend(metrics []string) string {
	parts := make([]string, len(metrics))
	for i, m := range metrics {
		parts[i] = lipgloss.NewStyle().Foreground(barColors[i%len(barColors)]).Render("■ " + m)
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) info(sum *Summary) string {
	var b strings.Builder
	b.WriteString("\n")
	if len(r.lowerIsBetter) > 0 {
		b.WriteString(labelStyle.Render("Lower is better: "))
		b.WriteString(dimStyle.Render(strings.Join(r.lowerIsBetter, ", ")))
		b.WriteString("\n")
	}
	if sum == nil {
		return b.String()
	}
	if sum.OutputPath != "" {
		b.WriteString(labelStyle.Render("Ranked table: "))
		b.WriteString(sum.OutputPath)
		if sum.XLSXPath != "" {
			b.WriteString(dimStyle.Render(" (also " + sum.XLSXPath + ")"))
		}
		b.WriteString("\n")
	}
	if sum.Destination != "" {
		b.WriteString(labelStyle.Render("Strategies copied to: "))
		b.WriteString(fmt.Sprintf("%s (%d files)", sum.Destination, sum.Copied))
		b.WriteString("\n")
	}
	if len(sum.Unmatched) > 0 {
		b.WriteString(labelStyle.Render("Without strategy file: "))
		b.WriteString(dimStyle.Render(strings.Join(sum.Unmatched, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

// Normalize min-max scales metric idx of entries to 0..1. A constant column
// and missing values map to 0.
func Normalize(entries []ranking.Entry, idx int) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range entries {
		v := e.Values[idx]
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(entries))
	span := hi - lo
	if math.IsInf(span, 0) || math.IsNaN(span) || span == 0 {
		return out
	}
	for i, e := range entries {
		if v := e.Values[idx]; !math.IsNaN(v) {
			out[i] = (v - lo) / span
		}
	}
	return out
}

// barLengths shifts values so the smallest bar starts at zero when any
// value is negative. Missing values get no bar.
func barLengths(values []float64) []float64 {
	floor := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v < floor {
			floor = v
		}
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			out[i] = v - floor
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

// ascending uses the direction stored in res, falling back to the
// configured lower-is-better list for tables read back from disk.
func (r *Renderer) ascending(res *ranking.Result, idx int) bool {
	if idx < len(res.Ascending) {
		return res.Ascending[idx]
	}
	return slices.Contains(r.lowerIsBetter, res.Metrics[idx])
}

func metricTitle(metric string, ascending bool) string {
	dir := "higher is better"
	if ascending {
		dir = "lower is better"
	}
	return fmt.Sprintf("%s (%s)", metric, dir)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return missingCell
	}
	return strconv.FormatFloat(v, 'f', labelPrecision, 64)
}
