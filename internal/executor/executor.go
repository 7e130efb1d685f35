// Package executor runs validated action-plan operations against the full
// dataset: named primitives dispatched directly, script fragments under a
// restricted sandbox with a per-operation timeout.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sheetwise/sheetwise/internal/dataset"
	"github.com/sheetwise/sheetwise/internal/plan"
)

// DefaultScriptTimeout bounds a single script operation's wall-clock time,
// independent of the caller's overall request deadline.
const DefaultScriptTimeout = 5 * time.Second

// Result carries the transformed dataset, one summary line per applied
// operation, and the terminal error if execution halted.
type Result struct {
	Data    *dataset.Dataset
	Summary []string
	Err     error
}

// Executor applies operations in order, halting on the first failure while
// preserving mutations from operations that already succeeded.
type Executor struct {
	ScriptTimeout time.Duration
}

func New() *Executor {
	return &Executor{ScriptTimeout: DefaultScriptTimeout}
}

// Execute runs the operations against a copy of d; the caller's dataset is
// never mutated. Column references are re-validated against the current
// frame before each operation since earlier steps may rename or remove
// columns.
func (e *Executor) Execute(ctx context.Context, d *dataset.Dataset, ops []plan.Operation) Result {
	cur := d.Clone()
	res := Result{Data: cur}
	for i, op := range ops {
		var err error
		switch {
		case op.Primitive != nil:
			err = e.applyPrimitive(cur, op.Primitive)
		case op.Script != nil:
			cur, err = e.runScript(ctx, cur, op.Script.Source, op.Description)
			res.Data = cur
		default:
			err = fmt.Errorf("operation carries neither primitive nor script")
		}
		if err != nil {
			res.Err = &OperationError{Index: i, Description: op.Description, Err: err}
			return res
		}
		res.Summary = append(res.Summary, op.Description)
	}
	return res
}

// applyPrimitive dispatches on the primitive variant. Adding a primitive
// means adding a case here and a constant in the plan package.
func (e *Executor) applyPrimitive(d *dataset.Dataset, p *plan.Primitive) error {
	switch p.Kind {
	case plan.OpDropDuplicates:
		return dropDuplicates(d, p.Params)
	case plan.OpFillMissing:
		return fillMissing(d, p.Params)
	case plan.OpDropMissing:
		return dropMissing(d, p.Params)
	case plan.OpFilter:
		return filterRows(d, p.Params)
	case plan.OpGroupAggregate:
		return groupAggregate(d, p.Params)
	case plan.OpSort:
		return sortRows(d, p.Params)
	case plan.OpAddColumn:
		return addColumn(d, p.Params)
	case plan.OpDeleteColumn:
		return deleteColumn(d, p.Params)
	case plan.OpRenameColumn:
		return renameColumn(d, p.Params)
	case plan.OpAddRow:
		return addRow(d, p.Params)
	case plan.OpDeleteRows:
		return deleteRows(d, p.Params)
	case plan.OpEditCell:
		return editCell(d, p.Params)
	case plan.OpClearCell:
		return clearCell(d, p.Params)
	case plan.OpReplaceText:
		return replaceText(d, p.Params)
	default:
		return fmt.Errorf("unknown primitive %q", p.Kind)
	}
}

func dropDuplicates(d *dataset.Dataset, params map[string]any) error {
	keyCols := d.ColumnNames()
	if col := optionalString(params, "column", ""); col != "" {
		if err := requireColumn(d, col); err != nil {
			return err
		}
		keyCols = []string{col}
	}
	seen := map[string]bool{}
	var drop []int
	for i := 0; i < d.NumRows(); i++ {
		parts := make([]string, len(keyCols))
		for j, c := range keyCols {
			v, _ := d.Cell(i, c)
			parts[j] = v.String()
		}
		key := strings.Join(parts, "\x1f")
		if seen[key] {
			drop = append(drop, i)
		}
		seen[key] = true
	}
	d.DeleteRows(drop)
	return nil
}

func fillMissing(d *dataset.Dataset, params map[string]any) error {
	target := optionalString(params, "column", "")
	cols := d.ColumnNames()
	if target != "" {
		if err := requireColumn(d, target); err != nil {
			return err
		}
		cols = []string{target}
	}
	strategy := optionalString(params, "strategy", "")
	var fill dataset.Value
	if strategy == "" {
		v, err := valueParam(params, "value")
		if err != nil {
			return fmt.Errorf("fill_missing needs a value or a strategy: %w", err)
		}
		fill = v
	}
	for _, name := range cols {
		col, _ := d.Column(name)
		cellFill := fill
		if strategy != "" {
			f, err := columnStat(col.Cells, strategy)
			if err != nil {
				return err
			}
			cellFill = dataset.Number(f)
		}
		for i, v := range col.Cells {
			if v.IsMissing() {
				col.Cells[i] = cellFill
			}
		}
	}
	return nil
}

func dropMissing(d *dataset.Dataset, params map[string]any) error {
	target := optionalString(params, "column", "")
	if target != "" {
		if err := requireColumn(d, target); err != nil {
			return err
		}
	}
	var drop []int
	for i := 0; i < d.NumRows(); i++ {
		if target != "" {
			if v, _ := d.Cell(i, target); v.IsMissing() {
				drop = append(drop, i)
			}
			continue
		}
		for _, v := range d.Row(i) {
			if v.IsMissing() {
				drop = append(drop, i)
				break
			}
		}
	}
	d.DeleteRows(drop)
	return nil
}

func filterRows(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	if err := requireColumn(d, col); err != nil {
		return err
	}
	op := optionalString(params, "op", "==")
	want, err := valueParam(params, "value")
	if err != nil {
		return err
	}
	pred, err := comparePredicate(op, want)
	if err != nil {
		return err
	}
	var drop []int
	for i := 0; i < d.NumRows(); i++ {
		v, _ := d.Cell(i, col)
		if !pred(v) {
			drop = append(drop, i)
		}
	}
	d.DeleteRows(drop)
	return nil
}

// comparePredicate builds a cell predicate for filter-style operations.
// Missing cells never match.
func comparePredicate(op string, want dataset.Value) (func(dataset.Value) bool, error) {
	switch op {
	case "==", "=", "equals":
		return func(v dataset.Value) bool {
			if v.IsMissing() {
				return false
			}
			if v.Equal(want) {
				return true
			}
			return strings.EqualFold(v.String(), want.String())
		}, nil
	case "!=", "not_equals":
		eq, _ := comparePredicate("==", want)
		return func(v dataset.Value) bool { return !v.IsMissing() && !eq(v) }, nil
	case "contains":
		needle := strings.ToLower(want.String())
		return func(v dataset.Value) bool {
			return !v.IsMissing() && strings.Contains(strings.ToLower(v.String()), needle)
		}, nil
	case "not_contains":
		c, _ := comparePredicate("contains", want)
		return func(v dataset.Value) bool { return !v.IsMissing() && !c(v) }, nil
	case ">", ">=", "<", "<=":
		threshold, ok := want.Float()
		if !ok {
			return nil, fmt.Errorf("filter op %q needs a numeric value", op)
		}
		return func(v dataset.Value) bool {
			f, ok := v.Float()
			if !ok {
				return false
			}
			switch op {
			case ">":
				return f > threshold
			case ">=":
				return f >= threshold
			case "<":
				return f < threshold
			default:
				return f <= threshold
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown filter op %q", op)
	}
}

func groupAggregate(d *dataset.Dataset, params map[string]any) error {
	groupBy, err := stringParam(params, "group_by")
	if err != nil {
		return err
	}
	if err := requireColumn(d, groupBy); err != nil {
		return err
	}
	agg := optionalString(params, "agg", "count")
	aggCol := optionalString(params, "aggregate_column", "")
	if agg != "count" {
		if aggCol == "" {
			return fmt.Errorf("aggregation %q needs an aggregate_column", agg)
		}
		if err := requireColumn(d, aggCol); err != nil {
			return err
		}
	}

	type bucket struct {
		key   dataset.Value
		cells []dataset.Value
		count int
	}
	order := []string{}
	buckets := map[string]*bucket{}
	for i := 0; i < d.NumRows(); i++ {
		kv, _ := d.Cell(i, groupBy)
		key := kv.String()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: kv}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		if aggCol != "" {
			v, _ := d.Cell(i, aggCol)
			b.cells = append(b.cells, v)
		}
	}

	keys := make([]dataset.Value, 0, len(order))
	results := make([]dataset.Value, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		keys = append(keys, b.key)
		if agg == "count" {
			results = append(results, dataset.Number(float64(b.count)))
			continue
		}
		f, err := columnStat(b.cells, agg)
		if err != nil {
			return err
		}
		results = append(results, dataset.Number(f))
	}

	resultName := agg
	if aggCol != "" {
		resultName = fmt.Sprintf("%s_%s", agg, aggCol)
	}
	out, err := dataset.New()
	if err != nil {
		return err
	}
	if err := out.AddColumn(groupBy, keys); err != nil {
		return err
	}
	if err := out.AddColumn(resultName, results); err != nil {
		return err
	}
	*d = *out
	return nil
}

func sortRows(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	if err := requireColumn(d, col); err != nil {
		return err
	}
	return d.SortRows(col, optionalBool(params, "ascending", true))
}

func addColumn(d *dataset.Dataset, params map[string]any) error {
	name, err := stringParam(params, "name")
	if err != nil {
		return err
	}
	cells := make([]dataset.Value, d.NumRows())
	if raw, ok := params["value"]; ok {
		v := anyToValue(raw)
		for i := range cells {
			cells[i] = v
		}
	}
	return d.AddColumn(name, cells)
}

func deleteColumn(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	return d.DeleteColumn(col)
}

func renameColumn(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	newName, err := stringParam(params, "new_name")
	if err != nil {
		return err
	}
	return d.RenameColumn(col, newName)
}

func addRow(d *dataset.Dataset, params map[string]any) error {
	raw, ok := params["values"]
	if !ok {
		return fmt.Errorf("missing param %q", "values")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("param %q must be a column-to-value map", "values")
	}
	values := make(map[string]dataset.Value, len(m))
	for k, v := range m {
		values[k] = anyToValue(v)
	}
	return d.AppendRow(values)
}

func deleteRows(d *dataset.Dataset, params map[string]any) error {
	rows, err := intsParam(params, "rows")
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r < 0 || r >= d.NumRows() {
			return fmt.Errorf("row %d out of range (rows=%d)", r, d.NumRows())
		}
	}
	d.DeleteRows(rows)
	return nil
}

func editCell(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	row, err := intParam(params, "row")
	if err != nil {
		return err
	}
	v, err := valueParam(params, "value")
	if err != nil {
		return err
	}
	return d.SetCell(row, col, v)
}

func clearCell(d *dataset.Dataset, params map[string]any) error {
	col, err := stringParam(params, "column")
	if err != nil {
		return err
	}
	row, err := intParam(params, "row")
	if err != nil {
		return err
	}
	return d.SetCell(row, col, dataset.Missing())
}

// replaceText performs case-insensitive substring replacement, the
// documented default for replace-style requests. Non-text cells are left
// untouched.
func replaceText(d *dataset.Dataset, params map[string]any) error {
	text, err := stringParam(params, "text")
	if err != nil {
		return err
	}
	replacement := optionalString(params, "replacement", "")
	cols := d.ColumnNames()
	if target := optionalString(params, "column", ""); target != "" && !strings.EqualFold(target, "all_columns") {
		if err := requireColumn(d, target); err != nil {
			return err
		}
		cols = []string{target}
	}
	for _, name := range cols {
		col, _ := d.Column(name)
		for i, v := range col.Cells {
			if v.Kind() != dataset.KindText {
				continue
			}
			if out, changed := replaceFold(v.String(), text, replacement); changed {
				col.Cells[i] = dataset.ParseCell(out)
			}
		}
	}
	return nil
}

// replaceFold replaces every case-insensitive occurrence of old with repl.
// Matching walks runes of s directly; case pairs whose UTF-8 encodings differ
// in length (U+023A folds to a longer byte sequence) must not shift offsets.
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
