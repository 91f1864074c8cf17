package export

import "fmt"

// Column describes one exported field. Width is a relative weight used by the
// paginated renderers; zero means 1.
type Column struct {
	Key   string
	Title string
	Width float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Titles returns the header line.
func (d Dataset) Titles() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Title
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

// Record returns row values in column order.
func (d Dataset) Record(row map[string]string) []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = row[col.Key]
	}
	return out
}

func (d Dataset) validate(format string) error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", format)
	}
	return nil
}

func (d Dataset) weights() []float64 {
	out := make([]float64, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Width
		if out[i] <= 0 {
			out[i] = 1
		}
	}
	return out
}
