package sample

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

func bigDataset(t *testing.T, rows int) *dataset.Dataset {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("ID,Amount,Region,When,Note\n")
	regions := []string{"north", "south", "east", "west"}
	for i := 0; i < rows; i++ {
		amount := fmt.Sprintf("%d", i%50)
		if i == rows-1 {
			amount = "100000" // outlier
		}
		note := "ok"
		if i%17 == 0 {
			note = "" // missing
		}
		sb.WriteString(fmt.Sprintf("%d,%s,%s,2024-01-%02d,%s\n",
			i, amount, regions[i%len(regions)], (i%28)+1, note))
	}
	d, err := dataset.ReadCSV(strings.NewReader(sb.String()), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return d
}

func TestBuildSmallDatasetReturnsAllRows(t *testing.T) {
	d := bigDataset(t, 20)
	s := NewBuilder(60, 10).Build(d)
	if len(s.Indices) != 20 {
		t.Fatalf("expected all 20 rows, got %d", len(s.Indices))
	}
	if !strings.Contains(s.Explanation, "Full dataset") {
		t.Fatalf("explanation should say full dataset: %s", s.Explanation)
	}
}

func TestBuildRespectsBudget(t *testing.T) {
	d := bigDataset(t, 500)
	b := NewBuilder(40, 10)
	s := b.Build(d)
	if len(s.Indices) > 40 {
		t.Fatalf("sample exceeds budget: %d > 40", len(s.Indices))
	}
	if len(s.Indices) < 10 {
		t.Fatalf("sample below minimum: %d < 10", len(s.Indices))
	}
	if s.Data.NumCols() != d.NumCols() {
		t.Fatalf("every source column must appear: %d != %d", s.Data.NumCols(), d.NumCols())
	}
	// indices must be strictly ascending and in range
	for i, r := range s.Indices {
		if r < 0 || r >= d.NumRows() {
			t.Fatalf("index %d out of range", r)
		}
		if i > 0 && s.Indices[i-1] >= r {
			t.Fatalf("indices not strictly ascending: %v", s.Indices)
		}
	}
	if s.Explanation == "" {
		t.Fatalf("explanation must be present")
	}
}

func TestBuildDeterministic(t *testing.T) {
	d := bigDataset(t, 300)
	b := NewBuilder(30, 10)
	a := b.Build(d)
	c := b.Build(d)
	if len(a.Indices) != len(c.Indices) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Indices), len(c.Indices))
	}
	for i := range a.Indices {
		if a.Indices[i] != c.Indices[i] {
			t.Fatalf("selection not deterministic at %d: %v vs %v", i, a.Indices, c.Indices)
		}
	}
}

func TestBuildIncludesOutlierRow(t *testing.T) {
	d := bigDataset(t, 200)
	s := NewBuilder(40, 10).Build(d)
	found := false
	for _, r := range s.Indices {
		if r == 199 {
			found = true
		}
	}
	if !found {
		t.Fatalf("extreme Amount outlier row should be sampled: %v", s.Indices)
	}
}

func TestBuildEmptyDataset(t *testing.T) {
	d, err := dataset.New("A", "B")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := NewBuilder(10, 5).Build(d)
	if len(s.Indices) != 0 || s.Data.NumRows() != 0 {
		t.Fatalf("empty dataset should give empty sample")
	}
	if s.Explanation == "" {
		t.Fatalf("explanation must still explain the empty sample")
	}
}

func TestBuildCoversEveryCategory(t *testing.T) {
	d := bigDataset(t, 400)
	s := NewBuilder(40, 10).Build(d)
	seen := map[string]bool{}
	for i := 0; i < s.Data.NumRows(); i++ {
		v, ok := s.Data.Cell(i, "Region")
		if !ok {
			t.Fatalf("Region column missing at row %d", i)
		}
		seen[v.String()] = true
	}
	for _, region := range []string{"north", "south", "east", "west"} {
		if !seen[region] {
			t.Fatalf("category %q missing from sample rows: %v", region, seen)
		}
	}
}

func TestPromptRowsHonorsConfiguredCellCap(t *testing.T) {
	in := "A,B\nabcdefghij,1\n"
	d, err := dataset.ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	b := NewBuilder(10, 5).WithCellCap(4)
	rows := b.PromptRows(b.Build(d))
	if got := rows[0][0]; got != "abcd…" {
		t.Fatalf("cell cap 4 should truncate to %q, got %q", "abcd…", got)
	}

	// Non-positive caps keep the default instead of truncating everything.
	b = NewBuilder(10, 5).WithCellCap(0)
	rows = b.PromptRows(b.Build(d))
	if got := rows[0][0]; got != "abcdefghij" {
		t.Fatalf("cap 0 should keep default cap, got %q", got)
	}
}

func TestPromptRowsTruncatesLongCells(t *testing.T) {
	long := strings.Repeat("x", 2000)
	in := "A,B\n" + long + ",1\n"
	d, err := dataset.ReadCSV(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	b := NewBuilder(10, 5)
	rows := b.PromptRows(b.Build(d))
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if len(rows[0][0]) >= 2000 {
		t.Fatalf("long cell not truncated: %d chars", len(rows[0][0]))
	}
	if !strings.HasSuffix(rows[0][0], "…") {
		t.Fatalf("truncated cell should end with ellipsis")
	}
}
