package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sheetwise/sheetwise/internal/dataset"
	"github.com/sheetwise/sheetwise/internal/plan"
)

func scriptOp(source string) plan.Operation {
	return plan.Operation{Description: "script", Script: &plan.Script{Source: source}}
}

func TestScreenAllowsPipelineVerbs(t *testing.T) {
	d := salesData(t)
	ok := []string{
		"filter(Amount > 10)",
		"filter(Name contains 'ali') | sort(Amount, desc)",
		"select(Name, Amount) | limit(2)",
		"fill(Amount, mean) | dedupe(Name)",
		`replace(Region, "north", "N")`,
	}
	for _, src := range ok {
		if err := Screen(d, src); err != nil {
			t.Errorf("Screen(%q) = %v, want nil", src, err)
		}
	}
}

func TestScreenRejectsEscapes(t *testing.T) {
	d := salesData(t)
	bad := []string{
		"import(os)",
		"exec(whatever)",
		"open('/etc/passwd')",
		"filter(__builtins__ > 1)",
		"system(ls)",
		"frobnicate(Amount)",
		"filter(SecretColumn > 1)",
		"sort Amount",
	}
	for _, src := range bad {
		err := Screen(d, src)
		if err == nil {
			t.Errorf("Screen(%q) should fail", src)
			continue
		}
		var sv *SandboxViolation
		if !errors.As(err, &sv) {
			t.Errorf("Screen(%q): expected *SandboxViolation, got %T", src, err)
		}
	}
}

func TestScriptPipelineExecutes(t *testing.T) {
	res := run(t, salesData(t), scriptOp("filter(Amount >= 10) | sort(Amount, desc) | limit(2)"))
	if res.Data.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", res.Data.NumRows())
	}
	if v, _ := res.Data.Cell(0, "Amount"); mustFloat(t, v) != 40 {
		t.Fatalf("first row = %v, want 40", v)
	}
}

func TestScriptFilterContains(t *testing.T) {
	res := run(t, salesData(t), scriptOp("filter(Name contains 'ali')"))
	if res.Data.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", res.Data.NumRows())
	}
}

func TestScriptFilterContainsFoldOffsets(t *testing.T) {
	// Mixed-case keyword before a multibyte column name: the keyword offset
	// must be located on the condition itself, not a lowered copy whose
	// U+023A prefix occupies an extra byte.
	d, err := dataset.ReadCSV(strings.NewReader("Ⱥname,Amount\nalice,1\nbob,2\n"), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if err := scriptFilter(d, []string{"Ⱥname CONTAINS 'ali'"}); err != nil {
		t.Fatalf("scriptFilter: %v", err)
	}
	if d.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", d.NumRows())
	}
	if v, _ := d.Cell(0, "Ⱥname"); v.String() != "alice" {
		t.Fatalf("kept row = %q, want alice", v.String())
	}
}

func TestScriptSelectReordersAndDrops(t *testing.T) {
	res := run(t, salesData(t), scriptOp("select(Amount, Name)"))
	names := res.Data.ColumnNames()
	if len(names) != 2 || names[0] != "Amount" || names[1] != "Name" {
		t.Fatalf("columns = %v", names)
	}
}

func TestScriptFillAndDedupe(t *testing.T) {
	res := run(t, salesData(t), scriptOp("fill(Amount, 0) | dedupe()"))
	if res.Data.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", res.Data.NumRows())
	}
	for i := 0; i < res.Data.NumRows(); i++ {
		if v, _ := res.Data.Cell(i, "Amount"); v.IsMissing() {
			t.Fatalf("fill left a missing cell")
		}
	}
}

func TestScriptCaseInsensitiveColumns(t *testing.T) {
	res := run(t, salesData(t), scriptOp("sort(amount, desc)"))
	if v, _ := res.Data.Cell(0, "Amount"); mustFloat(t, v) != 40 {
		t.Fatalf("case-insensitive column ref failed: %v", v)
	}
}

func TestScriptFailureLeavesInputFrame(t *testing.T) {
	d := salesData(t)
	res := New().Execute(context.Background(), d, []plan.Operation{
		scriptOp("drop(Region) | frobnicate(Amount)"),
	})
	if res.Err == nil {
		t.Fatalf("unknown verb should fail")
	}
	// screening rejects the whole script before any stage runs
	if res.Data.ColumnIndex("Region") < 0 {
		t.Fatalf("failed script must not leave partial column drops")
	}
}

func TestParsePipelineShapes(t *testing.T) {
	if _, err := parsePipeline(""); err == nil {
		t.Fatalf("empty script should fail")
	}
	if _, err := parsePipeline("limit(5"); err == nil {
		t.Fatalf("unbalanced stage should fail")
	}
	stages, err := parsePipeline(`filter(Name contains "a|b") | limit(3)`)
	if err != nil {
		t.Fatalf("parsePipeline: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("stages = %d, want 2 (pipe inside quotes must not split)", len(stages))
	}
}

func TestScriptLimitZero(t *testing.T) {
	res := run(t, salesData(t), scriptOp("limit(0)"))
	if res.Data.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", res.Data.NumRows())
	}
	if res.Data.NumCols() == 0 {
		t.Fatalf("columns must survive an empty result")
	}
}

func TestColumnStat(t *testing.T) {
	cells := []dataset.Value{
		dataset.Number(1), dataset.Number(3), dataset.Missing(), dataset.Text("x"), dataset.Number(2),
	}
	cases := []struct {
		stat string
		want float64
	}{
		{"mean", 2}, {"median", 2}, {"min", 1}, {"max", 3}, {"sum", 6},
	}
	for _, c := range cases {
		got, err := columnStat(cells, c.stat)
		if err != nil || got != c.want {
			t.Errorf("columnStat(%s) = %v, %v; want %v", c.stat, got, err, c.want)
		}
	}
	if _, err := columnStat(cells, "mode"); err == nil {
		t.Errorf("unknown stat should fail")
	}
	if _, err := columnStat([]dataset.Value{dataset.Text("a")}, "mean"); err == nil {
		t.Errorf("no numeric values should fail")
	}
}

func TestScriptTimeoutConfigured(t *testing.T) {
	e := New()
	if e.ScriptTimeout != DefaultScriptTimeout {
		t.Fatalf("default timeout = %v", e.ScriptTimeout)
	}
}
