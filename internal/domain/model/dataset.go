// Package model contains domain models passed between layers.
package model

import "math"

// Column describes one header field of a strategy export.
type Column struct {
	Name    string
	Numeric bool // every non-empty cell parsed as a float
}

// Record is one strategy row: its identifier (first column) and the values
// of every numeric column. Empty numeric cells hold NaN.
type Record struct {
	ID     string
	Values map[string]float64
}

// Value returns the metric value for the record, NaN when absent.
func (r Record) Value(metric string) float64 {
	v, ok := r.Values[metric]
	if !ok {
		return math.NaN()
	}
	return v
}

// Dataset is a parsed strategy export. Records keep input order.
type Dataset struct {
	Columns []Column
	Records []Record

	index map[string]int
}

// NewDataset builds a Dataset. The first column is the identifier column.
// Duplicate column names keep their first occurrence for lookups.
func NewDataset(columns []Column, records []Record) *Dataset {
	d := &Dataset{
		Columns: columns,
		Records: records,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := d.index[c.Name]; !dup {
			d.index[c.Name] = i
		}
	}
	return d
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// IDColumn returns the name of the identifier column, or "" for an empty header.
func (d *Dataset) IDColumn() string {
	if len(d.Columns) == 0 {
		return ""
	}
	return d.Columns[0].Name
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	if d.index == nil {
		return Column{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.Columns[i], true
}

// NumericColumns lists numeric columns in header order, skipping the
// identifier column, unnamed columns and any excluded names.
func (d *Dataset) NumericColumns(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	out := make([]string, 0, len(d.Columns))
	for i, c := range d.Columns {
		if i == 0 || !c.Numeric || c.Name == "" {
			continue
		}
		if _, ok := skip[c.Name]; ok {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}

// Values returns the column of metric values in record order.
func (d *Dataset) Values(metric string) []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Value(metric)
	}
	return out
}
