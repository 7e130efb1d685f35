package plan

import (
	"fmt"
	"strings"
)

// MaxOperations bounds how many operations a single plan may carry.
const MaxOperations = 20

// columnParams are primitive params that name a column and therefore get
// reference normalization and syntactic checks.
var columnParams = map[string]bool{
	"column": true, "group_by": true, "aggregate_column": true, "sort_by": true,
}

// Validate checks plan structure: operation count bounds, exactly one
// variant per operation, known primitive names, syntactically well-formed
// column references, and known rule/chart types. Column existence against
// the live dataset is re-checked by the executor before each operation.
func Validate(p *Plan) error {
	if p == nil {
		return &ValidationError{Index: -1, Reason: "plan is empty"}
	}
	if len(p.Operations) == 0 && p.FormatRule == nil && p.Chart == nil {
		return &ValidationError{Index: -1, Reason: "plan contains no operations, format rule, or chart"}
	}
	if len(p.Operations) > MaxOperations {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("plan has %d operations, limit is %d", len(p.Operations), MaxOperations)}
	}
	for i, op := range p.Operations {
		if (op.Primitive == nil) == (op.Script == nil) {
			return &ValidationError{Index: i, Reason: "operation must be exactly one of primitive or script"}
		}
		if op.Primitive != nil {
			if !primitiveKinds[op.Primitive.Kind] {
				return &ValidationError{Index: i, Reason: fmt.Sprintf("unknown primitive %q", op.Primitive.Kind)}
			}
			for key := range columnParams {
				if raw, ok := op.Primitive.Params[key]; ok {
					s, ok := raw.(string)
					if !ok || strings.TrimSpace(s) == "" {
						return &ValidationError{Index: i, Reason: fmt.Sprintf("param %q must be a non-empty column name", key)}
					}
				}
			}
		}
		if op.Script != nil && strings.TrimSpace(op.Script.Source) == "" {
			return &ValidationError{Index: i, Reason: "script is empty"}
		}
	}
	if fr := p.FormatRule; fr != nil {
		if !ruleTypes[fr.Type] {
			return &ValidationError{Index: -1, Reason: fmt.Sprintf("unknown format rule type %q", fr.Type)}
		}
		switch fr.Type {
		case RuleContainsText, RuleTextEquals, RuleReplaceText:
			if fr.Text == "" {
				return &ValidationError{Index: -1, Reason: fmt.Sprintf("format rule %q requires text", fr.Type)}
			}
		case RuleBetween:
			if fr.Upper < fr.Threshold {
				return &ValidationError{Index: -1, Reason: "between rule has upper bound below threshold"}
			}
		}
	}
	if p.Chart != nil && !chartTypes[p.Chart.Type] {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("unknown chart type %q", p.Chart.Type)}
	}
	return nil
}

// ResolveColumnRef maps a reference to an actual column name. Exact names
// win, then a case-insensitive name match; only a reference matching no
// column name at all is read as an Excel column position ("C" is the third
// column).
func ResolveColumnRef(ref string, columns []string) (string, bool) {
	for _, c := range columns {
		if c == ref {
			return c, true
		}
	}
	for _, c := range columns {
		if strings.EqualFold(c, ref) {
			return c, true
		}
	}
	idx, ok := letterIndex(strings.ToUpper(strings.TrimSpace(ref)))
	if ok && idx < len(columns) {
		return columns[idx], true
	}
	return "", false
}

func letterIndex(ref string) (int, bool) {
	if ref == "" || len(ref) > 2 {
		return 0, false
	}
	idx := 0
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		idx = idx*26 + int(ch-'A') + 1
	}
	return idx - 1, true
}

// NormalizeColumnRefs rewrites letter-style column references in primitive
// params and the format rule against the given column list. Unresolvable
// references are left alone for the executor to reject with context.
func NormalizeColumnRefs(p *Plan, columns []string) {
	for _, op := range p.Operations {
		if op.Primitive == nil {
			continue
		}
		for key := range columnParams {
			if raw, ok := op.Primitive.Params[key]; ok {
				if s, ok := raw.(string); ok {
					if resolved, ok := ResolveColumnRef(s, columns); ok {
						op.Primitive.Params[key] = resolved
					}
				}
			}
		}
	}
	if fr := p.FormatRule; fr != nil {
		if fr.Column != "" && !strings.EqualFold(fr.Column, "all_columns") {
			if resolved, ok := ResolveColumnRef(fr.Column, columns); ok {
				fr.Column = resolved
			}
		}
		for i, c := range fr.Columns {
			if resolved, ok := ResolveColumnRef(c, columns); ok {
				fr.Columns[i] = resolved
			}
		}
	}
}
