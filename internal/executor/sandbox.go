package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

// Script fragments are pipelines of allow-listed verbs joined by "|":
//
//	filter(Amount > 1000) | sort(Amount, desc) | drop(Notes) | limit(50)
//
// The interpreter exposes exactly two things: the current frame and the
// columnStat surface. There is no access to process state, the filesystem,
// or the network, and unknown identifiers fail the static screen before
// anything runs.

var allowedVerbs = map[string]bool{
	"filter": true, "sort": true, "select": true, "drop": true,
	"fill": true, "replace": true, "dedupe": true, "limit": true,
}

var allowedKeywords = map[string]bool{
	"asc": true, "desc": true, "contains": true,
	"mean": true, "median": true, "min": true, "max": true, "sum": true,
	"true": true, "false": true,
}

// deniedTokens are constructs that signal an attempt to escape the sandbox.
// Any occurrence rejects the script outright.
var deniedTokens = []string{
	"import", "exec", "eval", "open", "read", "write", "system", "subprocess",
	"os", "io", "net", "http", "socket", "file", "__",
}

type stage struct {
	verb string
	args []string
}

// Screen statically checks a script against the current frame: denied
// constructs, unknown verbs, and identifiers that are neither keywords nor
// column names all reject the script before execution.
func Screen(d *dataset.Dataset, source string) error {
	stages, err := parsePipeline(source)
	if err != nil {
		return err
	}
	columns := map[string]bool{}
	for _, c := range d.ColumnNames() {
		columns[strings.ToLower(c)] = true
	}
	for _, st := range stages {
		if !allowedVerbs[st.verb] {
			if isDenied(st.verb) {
				return &SandboxViolation{Token: st.verb, Reason: "disallowed construct"}
			}
			return &SandboxViolation{Token: st.verb, Reason: "identifier is not an allowed verb"}
		}
		for _, arg := range st.args {
			for _, ident := range identifiers(arg) {
				lower := strings.ToLower(ident)
				if isDenied(lower) {
					return &SandboxViolation{Token: ident, Reason: "disallowed construct"}
				}
				if !allowedKeywords[lower] && !columns[lower] {
					return &SandboxViolation{Token: ident, Reason: "identifier is neither a keyword nor a column"}
				}
			}
		}
	}
	return nil
}

func isDenied(ident string) bool {
	for _, t := range deniedTokens {
		if ident == t || strings.Contains(ident, "__") {
			return true
		}
	}
	return false
}

// identifiers extracts bare identifiers from an argument, skipping quoted
// strings and numbers.
func identifiers(arg string) []string {
	var out []string
	i := 0
	for i < len(arg) {
		c := arg[i]
		switch {
		case c == '"' || c == '\'':
			j := strings.IndexByte(arg[i+1:], c)
			if j < 0 {
				return append(out, arg[i:])
			}
			i += j + 2
		case isIdentStart(c):
			j := i
			for j < len(arg) && isIdentChar(arg[j]) {
				j++
			}
			out = append(out, arg[i:j])
			i = j
		default:
			i++
		}
	}
	return out
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func parsePipeline(source string) ([]stage, error) {
	var stages []stage
	for _, part := range splitTop(source, '|') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		open := strings.IndexByte(part, '(')
		if open < 0 || !strings.HasSuffix(part, ")") {
			return nil, &SandboxViolation{Token: part, Reason: "stage must be verb(args)"}
		}
		verb := strings.ToLower(strings.TrimSpace(part[:open]))
		body := part[open+1 : len(part)-1]
		var args []string
		for _, a := range splitTop(body, ',') {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}
		stages = append(stages, stage{verb: verb, args: args})
	}
	if len(stages) == 0 {
		return nil, &SandboxViolation{Reason: "script is empty"}
	}
	return stages, nil
}

// splitTop splits on sep outside quotes and parentheses.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// runScript screens and executes a script on a copy of the frame under the
// per-operation timeout. On timeout the copy is abandoned and the input
// frame is returned unchanged alongside a TimeoutError.
func (e *Executor) runScript(ctx context.Context, d *dataset.Dataset, source, description string) (*dataset.Dataset, error) {
	if err := Screen(d, source); err != nil {
		return d, err
	}
	stages, err := parsePipeline(source)
	if err != nil {
		return d, err
	}
	timeout := e.ScriptTimeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	type outcome struct {
		data *dataset.Dataset
		err  error
	}
	done := make(chan outcome, 1)
	work := d.Clone()
	go func() {
		out, err := applyStages(work, stages)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return d, o.err
		}
		return o.data, nil
	case <-time.After(timeout):
		return d, &TimeoutError{Description: description, Limit: timeout.String()}
	case <-ctx.Done():
		return d, ctx.Err()
	}
}

func applyStages(d *dataset.Dataset, stages []stage) (*dataset.Dataset, error) {
	var err error
	for _, st := range stages {
		switch st.verb {
		case "filter":
			err = scriptFilter(d, st.args)
		case "sort":
			err = scriptSort(d, st.args)
		case "select":
			d, err = scriptSelect(d, st.args)
		case "drop":
			err = scriptDrop(d, st.args)
		case "fill":
			err = scriptFill(d, st.args)
		case "replace":
			err = scriptReplace(d, st.args)
		case "dedupe":
			err = scriptDedupe(d, st.args)
		case "limit":
			err = scriptLimit(d, st.args)
		default:
			err = fmt.Errorf("unknown verb %q", st.verb)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.verb, err)
		}
	}
	return d, nil
}

// argColumn resolves an argument as a column reference: bare identifier or
// quoted name.
func argColumn(d *dataset.Dataset, arg string) (string, error) {
	name := unquote(arg)
	for _, c := range d.ColumnNames() {
		if strings.EqualFold(c, name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("column %q not found", name)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// indexFold locates the ASCII keyword in s case-insensitively, returning a
// byte offset valid for slicing s. Lowering the whole condition first would
// misalign offsets when a column name carries a multibyte case pair.
func indexFold(s, keyword string) int {
	for i := 0; i+len(keyword) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(keyword)], keyword) {
			return i
		}
	}
	return -1
}

var comparisonOps = []string{">=", "<=", "!=", "==", ">", "<", "="}

func scriptFilter(d *dataset.Dataset, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("filter takes one condition")
	}
	cond := args[0]

	if i := indexFold(cond, " contains "); i >= 0 {
		col, err := argColumn(d, cond[:i])
		if err != nil {
			return err
		}
		needle := unquote(cond[i+len(" contains "):])
		pred, _ := comparePredicate("contains", dataset.Text(needle))
		return keepMatching(d, col, pred)
	}

	for _, op := range comparisonOps {
		i := strings.Index(cond, op)
		if i < 0 {
			continue
		}
		col, err := argColumn(d, cond[:i])
		if err != nil {
			return err
		}
		lit := strings.TrimSpace(cond[i+len(op):])
		normalized := op
		if op == "=" {
			normalized = "=="
		}
		pred, err := comparePredicate(normalized, scriptLiteral(lit))
		if err != nil {
			return err
		}
		return keepMatching(d, col, pred)
	}
	return fmt.Errorf("condition %q is not of the form column OP value", cond)
}

func scriptLiteral(lit string) dataset.Value {
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return dataset.Number(f)
	}
	return dataset.ParseCell(unquote(lit))
}

func keepMatching(d *dataset.Dataset, col string, pred func(dataset.Value) bool) error {
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

func scriptSort(d *dataset.Dataset, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("sort needs a column")
	}
	col, err := argColumn(d, args[0])
	if err != nil {
		return err
	}
	ascending := true
	if len(args) > 1 && strings.EqualFold(strings.TrimSpace(args[1]), "desc") {
		ascending = false
	}
	return d.SortRows(col, ascending)
}

func scriptSelect(d *dataset.Dataset, args []string) (*dataset.Dataset, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("select needs at least one column")
	}
	out, err := dataset.New()
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		name, err := argColumn(d, a)
		if err != nil {
			return nil, err
		}
		col, _ := d.Column(name)
		cells := make([]dataset.Value, len(col.Cells))
		copy(cells, col.Cells)
		if err := out.AddColumn(name, cells); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scriptDrop(d *dataset.Dataset, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("drop needs at least one column")
	}
	for _, a := range args {
		name, err := argColumn(d, a)
		if err != nil {
			return err
		}
		if err := d.DeleteColumn(name); err != nil {
			return err
		}
	}
	return nil
}

func scriptFill(d *dataset.Dataset, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("fill takes a column and a value or statistic")
	}
	col, err := argColumn(d, args[0])
	if err != nil {
		return err
	}
	params := map[string]any{"column": col}
	stat := strings.ToLower(strings.TrimSpace(args[1]))
	switch stat {
	case "mean", "median", "min", "max", "sum":
		params["strategy"] = stat
	default:
		params["value"] = unquote(args[1])
	}
	return fillMissing(d, params)
}

func scriptReplace(d *dataset.Dataset, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("replace takes a column, old text, and new text")
	}
	col, err := argColumn(d, args[0])
	if err != nil {
		return err
	}
	return replaceText(d, map[string]any{
		"column": col, "text": unquote(args[1]), "replacement": unquote(args[2]),
	})
}

func scriptDedupe(d *dataset.Dataset, args []string) error {
	params := map[string]any{}
	if len(args) > 0 {
		col, err := argColumn(d, args[0])
		if err != nil {
			return err
		}
		params["column"] = col
	}
	return dropDuplicates(d, params)
}

func scriptLimit(d *dataset.Dataset, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("limit takes a row count")
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 0 {
		return fmt.Errorf("limit needs a non-negative integer")
	}
	var drop []int
	for i := n; i < d.NumRows(); i++ {
		drop = append(drop, i)
	}
	d.DeleteRows(drop)
	return nil
}
