package export

// Dataset defines tabular export content. Rows are ordered like Headers.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Append adds a row, padding or truncating it to the header count.
func (d *Dataset) Append(values ...string) {
	row := make([]string, len(d.Headers))
	copy(row, values)
	d.Rows = append(d.Rows, row)
}
