// Package table reads strategy exports and writes ranked tables as
// delimited text or spreadsheets.
package table

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okian/sqxrank/internal/domain/model"
	"github.com/okian/sqxrank/internal/domain/ranking"
)

// Output table column names around the metric columns.
const (
	PositionColumn = "Position"
	IDColumn       = "ID"
	ScoreColumn    = "Score"
)

const (
	filePermission = 0o644
	utf8BOM        = "\uFEFF"
)

// CSV reads and writes delimited tables.
type CSV struct {
	delimiter rune
}

// NewCSV returns a codec for the given single-character delimiter.
func NewCSV(delimiter string) (*CSV, error) {
	r, err := ParseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	return &CSV{delimiter: r}, nil
}

// ParseDelimiter accepts exactly one character, with "\t" allowed as an
// escape for tab.
func ParseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrDelimiter, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: %q", ErrDelimiter, s)
	}
	return r, nil
}

// ReadFile parses the strategy export at path.
func (c *CSV) ReadFile(ctx context.Context, path string) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	return c.Read(f)
}

// Read parses a strategy export. The first row is the header and the first
// column is the strategy identifier. A column is numeric when every
// non-empty cell parses as a float; empty numeric cells become NaN.
func (c *CSV) Read(r io.Reader) (*model.Dataset, error) {
	header, rows, err := c.readAll(r)
	if err != nil {
		return nil, err
	}

	columns := make([]model.Column, len(header))
	for j, name := range header {
		columns[j] = model.Column{Name: name, Numeric: numericColumn(rows, j)}
	}

	records := make([]model.Record, len(rows))
	for i, row := range rows {
		rec := model.Record{ID: cell(row, 0), Values: make(map[string]float64)}
		for j, col := range columns {
			if !col.Numeric {
				continue
			}
			if _, dup := rec.Values[col.Name]; dup {
				continue
			}
			rec.Values[col.Name] = parseCell(cell(row, j))
		}
		records[i] = rec
	}

	return model.NewDataset(columns, records), nil
}

// ReadRanked parses a table written by WriteRanked back into a Result.
// Only Metrics and Entries are populated.
func (c *CSV) ReadRanked(ctx context.Context, path string) (*ranking.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	header, rows, err := c.readAll(f)
	if err != nil {
		return nil, err
	}
	if len(header) < 3 || header[0] != PositionColumn || header[1] != IDColumn || header[len(header)-1] != ScoreColumn {
		return nil, fmt.Errorf("%w: %s is not a ranked table", ErrParse, path)
	}

	metrics := header[2 : len(header)-1]
	res := &ranking.Result{Metrics: metrics, Entries: make([]ranking.Entry, 0, len(rows))}
	for i, row := range rows {
		pos, err := strconv.Atoi(strings.TrimSpace(cell(row, 0)))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d position: %w", ErrParse, i+2, err)
		}
		entry := ranking.Entry{
			Position: pos,
			ID:       cell(row, 1),
			Values:   make([]float64, len(metrics)),
			Score:    parseCell(cell(row, len(header)-1)),
		}
		for m := range metrics {
			entry.Values[m] = parseCell(cell(row, m+2))
		}
		res.Entries = append(res.Entries, entry)
	}
	res.Total = len(res.Entries)
	return res, nil
}

// WriteRanked writes the ranked table to path with the columns Position,
// ID, each metric and Score. Missing values are written as empty cells.
func (c *CSV) WriteRanked(ctx context.Context, path string, res *ranking.Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	w := csv.NewWriter(f)
	w.Comma = c.delimiter
	for _, row := range Rows(res) {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Rows renders the ranked table as text rows, header first.
func Rows(res *ranking.Result) [][]string {
	header := make([]string, 0, len(res.Metrics)+3)
	header = append(header, PositionColumn, IDColumn)
	header = append(header, res.Metrics...)
	header = append(header, ScoreColumn)

	rows := make([][]string, 0, len(res.Entries)+1)
	rows = append(rows, header)
	for _, e := range res.Entries {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(e.Position), e.ID)
		for _, v := range e.Values {
			row = append(row, FormatFloat(v))
		}
		row = append(row, FormatFloat(e.Score))
		rows = append(rows, row)
	}
	return rows
}

// FormatFloat renders v in the shortest exact decimal form, NaN as "".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *CSV) readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = c.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty table", ErrParse)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for j := range header {
		if j == 0 {
			header[j] = strings.TrimPrefix(header[j], utf8BOM)
		}
		header[j] = strings.TrimSpace(header[j])
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return header, rows, nil
}

func cell(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}

func numericColumn(rows [][]string, j int) bool {
	for _, row := range rows {
		s := strings.TrimSpace(cell(row, j))
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
	}
	return true
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
