package dataset

import (
	"strings"
	"testing"
)

func TestReadCSVBasic(t *testing.T) {
	in := "Name,Age,City\nalice,30,Lyon\nbob,25,\n"
	d, err := ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if d.NumRows() != 2 || d.NumCols() != 3 {
		t.Fatalf("dims = %dx%d", d.NumRows(), d.NumCols())
	}
	if v, _ := d.Cell(0, "Age"); v.Kind() != KindNumber {
		t.Fatalf("Age should parse numeric, got %v", v.Kind())
	}
	if v, _ := d.Cell(1, "City"); !v.IsMissing() {
		t.Fatalf("empty field should be missing")
	}
}

func TestReadCSVShortRecordsPad(t *testing.T) {
	in := "A,B,C\n1,2\n"
	d, err := ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if v, _ := d.Cell(0, "C"); !v.IsMissing() {
		t.Fatalf("short record should pad with missing")
	}
}

func TestReadCSVDuplicateHeaders(t *testing.T) {
	in := "Name,Name,,Name\nx,y,z,w\n"
	d, err := ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	names := d.ColumnNames()
	seen := map[string]bool{}
	for _, n := range names {
		if n == "" {
			t.Fatalf("blank column name survived: %v", names)
		}
		if seen[n] {
			t.Fatalf("duplicate column name survived: %v", names)
		}
		seen[n] = true
	}
	if names[0] != "Name" {
		t.Fatalf("first occurrence should keep its name, got %v", names)
	}
}

func TestReadCSVTabDelimited(t *testing.T) {
	in := "A\tB\n1\t2\n"
	d, err := ReadCSV(strings.NewReader(in), '\t')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if d.NumCols() != 2 {
		t.Fatalf("cols = %d, want 2", d.NumCols())
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(""), ',')
	if err != nil {
		t.Fatalf("ReadCSV empty: %v", err)
	}
	if d.NumRows() != 0 || d.NumCols() != 0 {
		t.Fatalf("empty input should produce empty dataset")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	in := "Name,Score\nalice,10\nbob,\n"
	d, err := ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	var sb strings.Builder
	if err := d.WriteCSV(&sb); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if sb.String() != in {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", sb.String(), in)
	}
}
