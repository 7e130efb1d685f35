package sample

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

func mustCSV(t *testing.T, csv string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.ReadCSV(strings.NewReader(csv), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return d
}

func TestProfileNumericColumn(t *testing.T) {
	d := mustCSV(t, "N\n1\n2\n3\n4\n100\n")
	p := Profile(d, 0)
	if p.Kind != KindNumeric {
		t.Fatalf("kind = %v", p.Kind)
	}
	if p.Min != 1 || p.Max != 100 {
		t.Fatalf("min/max = %v/%v", p.Min, p.Max)
	}
	if p.MinRow != 0 || p.MaxRow != 4 {
		t.Fatalf("min/max rows = %d/%d", p.MinRow, p.MaxRow)
	}
}

func TestProfileNumericOutliers(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("N\n")
	for i := 0; i < 30; i++ {
		sb.WriteString("10\n")
	}
	sb.WriteString("9999\n")
	p := Profile(mustCSV(t, sb.String()), 0)
	if len(p.OutlierRows) != 1 || p.OutlierRows[0] != 30 {
		t.Fatalf("outliers = %v, want [30]", p.OutlierRows)
	}
}

func TestProfileCategoricalColumn(t *testing.T) {
	d := mustCSV(t, "C,X\nred,1\nblue,1\nred,1\n,1\ngreen,1\n")
	p := Profile(d, 0)
	if p.Kind != KindCategorical {
		t.Fatalf("kind = %v", p.Kind)
	}
	if p.DistinctCount != 3 {
		t.Fatalf("distinct = %d", p.DistinctCount)
	}
	want := []int{0, 1, 4} // first appearance of each value
	if len(p.CategoryRows) != len(want) {
		t.Fatalf("category rows = %v", p.CategoryRows)
	}
	for i := range want {
		if p.CategoryRows[i] != want[i] {
			t.Fatalf("category rows = %v, want %v", p.CategoryRows, want)
		}
	}
	if p.MissingRow != 3 {
		t.Fatalf("missing row = %d, want 3", p.MissingRow)
	}
}

func TestProfileHighCardinalityBecomesText(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("T\n")
	for i := 0; i < maxCategories+5; i++ {
		sb.WriteString(fmt.Sprintf("value-%d\n", i))
	}
	p := Profile(mustCSV(t, sb.String()), 0)
	if p.Kind != KindText {
		t.Fatalf("high-cardinality column should be text, got %v", p.Kind)
	}
	if p.CategoryRows != nil {
		t.Fatalf("text columns carry no category rows")
	}
}

func TestProfileDatetimeColumn(t *testing.T) {
	d := mustCSV(t, "D\n2024-06-01\n2024-01-01\n2024-12-31\n")
	p := Profile(d, 0)
	if p.Kind != KindDatetime {
		t.Fatalf("kind = %v", p.Kind)
	}
	if p.EarliestRow != 1 || p.LatestRow != 2 {
		t.Fatalf("earliest/latest = %d/%d", p.EarliestRow, p.LatestRow)
	}
}

func TestProfileBooleanColumn(t *testing.T) {
	d := mustCSV(t, "B\ntrue\nfalse\ntrue\n")
	p := Profile(d, 0)
	if p.Kind != KindBoolean {
		t.Fatalf("kind = %v", p.Kind)
	}
	if p.DistinctCount != 2 {
		t.Fatalf("distinct = %d", p.DistinctCount)
	}
}

func TestProfileAllMissing(t *testing.T) {
	d := mustCSV(t, "M,X\n,1\n,1\n,1\n")
	p := Profile(d, 0)
	if p.Kind != KindText {
		t.Fatalf("all-missing column should degrade to text, got %v", p.Kind)
	}
	if p.MissingRow != 0 {
		t.Fatalf("missing row = %d", p.MissingRow)
	}
	if p.Missing != 3 {
		t.Fatalf("missing count = %d", p.Missing)
	}
}
