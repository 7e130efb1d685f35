// Package format projects formatting rules, resolved by the model against a
// sample, over every row of the full dataset. Sample membership is never
// assumed: each predicate is re-evaluated against the whole frame.
package format

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sheetwise/sheetwise/internal/dataset"
	"github.com/sheetwise/sheetwise/internal/plan"
)

// CellRef addresses one cell to be styled.
type CellRef struct {
	Row    int
	Column string
}

// Projection is the result of evaluating a rule: the cells to style with
// the rule's presentation directives, or for replace-style rules the names
// of columns that were rewritten in place.
type Projection struct {
	Cells            []CellRef
	ReplacedColumns  []string
	ReplacementCount int
	BgColor          string
	FontColor        string
	Bold             bool
}

// Project evaluates rule against every row of d. Text predicates match
// case-insensitive substrings by default; missing and non-coercible cells
// never match and never raise. Replace rules mutate d's matching columns.
func Project(d *dataset.Dataset, rule *plan.FormatRule) (*Projection, error) {
	if rule == nil {
		return &Projection{}, nil
	}
	proj := &Projection{BgColor: rule.BgColor, FontColor: rule.FontColor, Bold: rule.Bold}

	cols, err := targetColumns(d, rule)
	if err != nil {
		return nil, err
	}

	switch rule.Type {
	case plan.RuleContainsText:
		matchText(d, cols, proj, func(s string) bool {
			return strings.Contains(strings.ToLower(s), strings.ToLower(rule.Text))
		})
	case plan.RuleTextEquals:
		matchText(d, cols, proj, func(s string) bool {
			return strings.EqualFold(s, rule.Text)
		})
	case plan.RuleGreaterThan:
		matchNumeric(d, cols, proj, func(f float64) bool { return f > rule.Threshold })
	case plan.RuleLessThan:
		matchNumeric(d, cols, proj, func(f float64) bool { return f < rule.Threshold })
	case plan.RuleBetween:
		matchNumeric(d, cols, proj, func(f float64) bool {
			return f >= rule.Threshold && f <= rule.Upper
		})
	case plan.RuleDuplicates:
		matchDuplicates(d, cols, proj)
	case plan.RuleReplaceText:
		replaceColumns(d, cols, rule, proj)
	default:
		return nil, fmt.Errorf("unknown format rule type %q", rule.Type)
	}
	return proj, nil
}

// targetColumns resolves the rule's column spec: a column set, one column,
// or every column when unspecified or "all_columns".
func targetColumns(d *dataset.Dataset, rule *plan.FormatRule) ([]string, error) {
	if len(rule.Columns) > 0 {
		out := make([]string, 0, len(rule.Columns))
		for _, c := range rule.Columns {
			if d.ColumnIndex(c) < 0 {
				return nil, fmt.Errorf("column %q not found", c)
			}
			out = append(out, c)
		}
		return out, nil
	}
	if rule.Column == "" || strings.EqualFold(rule.Column, "all_columns") {
		return d.ColumnNames(), nil
	}
	if d.ColumnIndex(rule.Column) < 0 {
		return nil, fmt.Errorf("column %q not found", rule.Column)
	}
	return []string{rule.Column}, nil
}

func matchText(d *dataset.Dataset, cols []string, proj *Projection, pred func(string) bool) {
	for _, name := range cols {
		col, _ := d.Column(name)
		for i, v := range col.Cells {
			if v.IsMissing() {
				continue
			}
			if pred(v.String()) {
				proj.Cells = append(proj.Cells, CellRef{Row: i, Column: name})
			}
		}
	}
}

func matchNumeric(d *dataset.Dataset, cols []string, proj *Projection, pred func(float64) bool) {
	for _, name := range cols {
		col, _ := d.Column(name)
		for i, v := range col.Cells {
			f, ok := v.Float()
			if !ok {
				continue
			}
			if pred(f) {
				proj.Cells = append(proj.Cells, CellRef{Row: i, Column: name})
			}
		}
	}
}

// matchDuplicates flags cells whose exact value occurs more than once. A
// multi-column rule treats the row-wise tuple across those columns as the
// duplicate key and flags every cell of duplicated tuples.
func matchDuplicates(d *dataset.Dataset, cols []string, proj *Projection) {
	if len(cols) > 1 {
		counts := map[string]int{}
		keys := make([]string, d.NumRows())
		for i := 0; i < d.NumRows(); i++ {
			parts := make([]string, len(cols))
			for j, c := range cols {
				v, _ := d.Cell(i, c)
				parts[j] = v.String()
			}
			keys[i] = strings.Join(parts, "\x1f")
			counts[keys[i]]++
		}
		for i := 0; i < d.NumRows(); i++ {
			if counts[keys[i]] > 1 {
				for _, c := range cols {
					proj.Cells = append(proj.Cells, CellRef{Row: i, Column: c})
				}
			}
		}
		return
	}
	for _, name := range cols {
		col, _ := d.Column(name)
		counts := map[string]int{}
		for _, v := range col.Cells {
			if !v.IsMissing() {
				counts[v.String()]++
			}
		}
		for i, v := range col.Cells {
			if !v.IsMissing() && counts[v.String()] > 1 {
				proj.Cells = append(proj.Cells, CellRef{Row: i, Column: name})
			}
		}
	}
}

// replaceColumns rewrites matching text in place: case-insensitive
// substring replacement, partial matches included. Non-text cells are left
// alone.
func replaceColumns(d *dataset.Dataset, cols []string, rule *plan.FormatRule, proj *Projection) {
	if rule.Text == "" {
		return
	}
	for _, name := range cols {
		col, _ := d.Column(name)
		touched := false
		for i, v := range col.Cells {
			if v.Kind() != dataset.KindText {
				continue
			}
			out, changed := replaceFold(v.String(), rule.Text, rule.Replacement)
			if !changed {
				continue
			}
			col.Cells[i] = dataset.Text(out)
			proj.ReplacementCount++
			touched = true
		}
		if touched {
			proj.ReplacedColumns = append(proj.ReplacedColumns, name)
		}
	}
}

// replaceFold replaces every case-insensitive occurrence of old with repl.
// All offsets stay native to s: folding can change a rune's encoded length
// (U+023A is two bytes, its lowercase three), so indexes taken from a lowered
// copy are unsafe for slicing the original.
func replaceFold(s, old, repl string) (string, bool) {
	if old == "" {
		return s, false
	}
	var b strings.Builder
	changed := false
	for i := 0; i < len(s); {
		if n := foldPrefixLen(s[i:], old); n > 0 {
			b.WriteString(repl)
			i += n
			changed = true
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	if !changed {
		return s, false
	}
	return b.String(), true
}

// foldPrefixLen reports the byte length of the prefix of s that matches old
// rune-for-rune under simple case folding, or 0 when there is no match.
func foldPrefixLen(s, old string) int {
	n := 0
	for _, want := range old {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(r) != unicode.ToLower(want) {
			return 0
		}
		n += size
	}
	return n
}
