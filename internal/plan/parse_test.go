package plan

import (
	"strings"
	"testing"
)

func TestExtractJSONPlain(t *testing.T) {
	in := `{"operations": []}`
	out, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != in {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	in := "Here is the plan:\n```json\n{\"operations\": []}\n```\nDone."
	out, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"operations": []}` {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONEmbeddedObject(t *testing.T) {
	in := `Sure! The plan is {"operations": [{"op": "sort", "params": {"column": "A"}}]} as requested.`
	out, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if !strings.Contains(out, `"op": "sort"`) {
		t.Fatalf("got %q", out)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("I cannot help with that."); err == nil {
		t.Fatalf("expected error for prose-only output")
	}
}

func TestParsePrimitiveAndScript(t *testing.T) {
	in := `{
  "operations": [
    {"op": "SORT", "params": {"column": "Date", "ascending": true}, "description": "Sort by Date"},
    {"script": "filter(Amount > 10) | limit(5)"}
  ]
}`
	p, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Operations) != 2 {
		t.Fatalf("operations = %d", len(p.Operations))
	}
	op0 := p.Operations[0]
	if op0.Primitive == nil || op0.Primitive.Kind != OpSort {
		t.Fatalf("op0 = %+v", op0)
	}
	if op0.Description != "Sort by Date" {
		t.Fatalf("op0 description = %q", op0.Description)
	}
	op1 := p.Operations[1]
	if op1.Script == nil || !strings.Contains(op1.Script.Source, "filter") {
		t.Fatalf("op1 = %+v", op1)
	}
	if op1.Description == "" {
		t.Fatalf("missing description must get a fallback")
	}
}

func TestParseDropsEmptyOperations(t *testing.T) {
	in := `{"operations": [{"description": "nothing here"}, {"op": "sort", "params": {"column": "A"}}]}`
	p, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Operations) != 1 {
		t.Fatalf("empty operation should be dropped, got %d", len(p.Operations))
	}
}

func TestParseFormatRuleDefaults(t *testing.T) {
	in := `{"operations": [], "format_rule": {"type": "Contains_Text", "column": "Status", "text": "overdue"}}`
	p, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.FormatRule == nil {
		t.Fatalf("format rule missing")
	}
	if p.FormatRule.Type != RuleContainsText {
		t.Fatalf("type = %q", p.FormatRule.Type)
	}
	if p.FormatRule.BgColor != "#FFF3CD" {
		t.Fatalf("default bg color = %q", p.FormatRule.BgColor)
	}
}

func TestParseChartNoneIgnored(t *testing.T) {
	in := `{"operations": [{"op": "sort", "params": {"column": "A"}}], "chart": {"type": "none"}}`
	p, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Chart != nil {
		t.Fatalf("chart type none should be dropped")
	}
}
