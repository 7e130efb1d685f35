package plan

import (
	"errors"
	"testing"
)

func primOp(kind PrimitiveKind, params map[string]any) Operation {
	if params == nil {
		params = map[string]any{}
	}
	return Operation{Description: "test", Primitive: &Primitive{Kind: kind, Params: params}}
}

func TestValidateAcceptsKnownPrimitives(t *testing.T) {
	p := &Plan{Operations: []Operation{
		primOp(OpSort, map[string]any{"column": "A"}),
		primOp(OpDropDuplicates, nil),
		{Description: "script", Script: &Script{Source: "limit(5)"}},
	}}
	if err := Validate(p); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		p    *Plan
	}{
		{"nil plan", nil},
		{"empty plan", &Plan{}},
		{"unknown primitive", &Plan{Operations: []Operation{primOp("explode", nil)}}},
		{"both variants", &Plan{Operations: []Operation{{
			Primitive: &Primitive{Kind: OpSort, Params: map[string]any{}},
			Script:    &Script{Source: "limit(1)"},
		}}}},
		{"neither variant", &Plan{Operations: []Operation{{Description: "x"}}}},
		{"empty script", &Plan{Operations: []Operation{{Script: &Script{Source: "   "}}}}},
		{"blank column param", &Plan{Operations: []Operation{primOp(OpSort, map[string]any{"column": " "})}}},
		{"non-string column param", &Plan{Operations: []Operation{primOp(OpSort, map[string]any{"column": 3.0})}}},
		{"unknown rule", &Plan{FormatRule: &FormatRule{Type: "sparkle"}}},
		{"rule missing text", &Plan{FormatRule: &FormatRule{Type: RuleContainsText}}},
		{"between inverted", &Plan{FormatRule: &FormatRule{Type: RuleBetween, Threshold: 10, Upper: 5}}},
		{"unknown chart", &Plan{Chart: &Chart{Type: "donut"}}},
	}
	for _, c := range cases {
		err := Validate(c.p)
		if err == nil {
			t.Errorf("%s: expected validation error", c.name)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected *ValidationError, got %T", c.name, err)
		}
	}
}

func TestValidateOperationLimit(t *testing.T) {
	p := &Plan{}
	for i := 0; i <= MaxOperations; i++ {
		p.Operations = append(p.Operations, primOp(OpDropDuplicates, nil))
	}
	if err := Validate(p); err == nil {
		t.Fatalf("plan over the operation limit should fail")
	}
}

func TestResolveColumnRef(t *testing.T) {
	columns := []string{"Name", "Amount", "C"}
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"Name", "Name", true},
		{"name", "Name", true},
		{"B", "Amount", true},
		{"C", "C", true}, // exact name beats letter position
		{"AA", "", false},
		{"Ghost", "", false},
	}
	for _, c := range cases {
		got, ok := ResolveColumnRef(c.ref, columns)
		if ok != c.ok || got != c.want {
			t.Errorf("ResolveColumnRef(%q) = %q, %v; want %q, %v", c.ref, got, ok, c.want, c.ok)
		}
	}
}

func TestResolveColumnRefFoldBeatsLetter(t *testing.T) {
	// A header that merely differs in case from the reference must win over
	// reading the reference as an Excel position.
	columns := []string{"Name", "Amount", "b"}
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"B", "b", true},
		{"amount", "Amount", true},
		{"AA", "", false},
	}
	for _, c := range cases {
		got, ok := ResolveColumnRef(c.ref, columns)
		if ok != c.ok || got != c.want {
			t.Errorf("ResolveColumnRef(%q) = %q, %v; want %q, %v", c.ref, got, ok, c.want, c.ok)
		}
	}
}

func TestNormalizeColumnRefs(t *testing.T) {
	p := &Plan{
		Operations: []Operation{primOp(OpSort, map[string]any{"column": "B"})},
		FormatRule: &FormatRule{Type: RuleGreaterThan, Column: "a", Threshold: 1},
	}
	NormalizeColumnRefs(p, []string{"Alpha", "Beta"})
	if got := p.Operations[0].Primitive.Params["column"]; got != "Beta" {
		t.Fatalf("letter ref not normalized: %v", got)
	}
	if p.FormatRule.Column != "Alpha" {
		t.Fatalf("rule column not normalized: %v", p.FormatRule.Column)
	}
}
