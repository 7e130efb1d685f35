package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadCSV loads a dataset from CSV. The first record is the header; short
// records are padded with missing cells. Duplicate header names receive a
// numeric suffix so the unique-name invariant holds.
func ReadCSV(r io.Reader, delimiter rune) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if delimiter != 0 {
		cr.Comma = delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	d := &Dataset{cols: headerColumns(header)}

	row := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		for i := range d.cols {
			if i < len(rec) {
				d.cols[i].Cells = append(d.cols[i].Cells, ParseCell(rec[i]))
			} else {
				d.cols[i].Cells = append(d.cols[i].Cells, Missing())
			}
		}
	}
	return d, nil
}

// headerColumns builds empty columns from a header record. Blank names
// become "Column" and duplicates receive a numeric suffix so the
// unique-name invariant holds.
func headerColumns(header []string) []Column {
	cols := make([]Column, 0, len(header))
	counts := map[string]int{}
	used := map[string]bool{}
	for _, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Column"
		}
		base := name
		counts[base]++
		if counts[base] > 1 {
			name = fmt.Sprintf("%s_%d", base, counts[base])
		}
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%s_%d", base, counts[base])
		}
		used[name] = true
		cols = append(cols, Column{Name: name})
	}
	return cols
}

// WriteCSV serializes the dataset with a header row. Missing cells are
// written as empty fields.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.cols))
	for i := 0; i < d.NumRows(); i++ {
		for j, c := range d.cols {
			rec[j] = c.Cells[i].String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
