// Package plan models the structured action plans produced by the
// plan-generation model and routes requests to the right model tier.
package plan

import "fmt"

// PrimitiveKind names a built-in transform. Adding a primitive means adding
// a constant here and a case in the executor's dispatch.
type PrimitiveKind string

const (
	OpDropDuplicates PrimitiveKind = "drop_duplicates"
	OpFillMissing    PrimitiveKind = "fill_missing"
	OpDropMissing    PrimitiveKind = "drop_missing"
	OpFilter         PrimitiveKind = "filter"
	OpGroupAggregate PrimitiveKind = "group_aggregate"
	OpSort           PrimitiveKind = "sort"
	OpAddColumn      PrimitiveKind = "add_column"
	OpDeleteColumn   PrimitiveKind = "delete_column"
	OpRenameColumn   PrimitiveKind = "rename_column"
	OpAddRow         PrimitiveKind = "add_row"
	OpDeleteRows     PrimitiveKind = "delete_rows"
	OpEditCell       PrimitiveKind = "edit_cell"
	OpClearCell      PrimitiveKind = "clear_cell"
	OpReplaceText    PrimitiveKind = "replace_text"
)

var primitiveKinds = map[PrimitiveKind]bool{
	OpDropDuplicates: true, OpFillMissing: true, OpDropMissing: true,
	OpFilter: true, OpGroupAggregate: true, OpSort: true,
	OpAddColumn: true, OpDeleteColumn: true, OpRenameColumn: true,
	OpAddRow: true, OpDeleteRows: true, OpEditCell: true,
	OpClearCell: true, OpReplaceText: true,
}

// Primitive is a named transform with declared parameters.
type Primitive struct {
	Kind   PrimitiveKind
	Params map[string]any
}

// Script is an inline transform fragment evaluated under the restricted
// sandbox.
type Script struct {
	Source string
}

// Operation is a tagged variant: exactly one of Primitive or Script is set.
type Operation struct {
	Description string
	Primitive   *Primitive
	Script      *Script
}

// FormatRule identifies a column and a predicate to project over the full
// dataset at save time, plus presentation directives.
type FormatRule struct {
	Type        string // contains_text, text_equals, greater_than, less_than, between, duplicates, replace_text
	Column      string // empty or "all_columns" means every column
	Columns     []string
	Text        string
	Replacement string
	Threshold   float64
	Upper       float64
	BgColor     string
	FontColor   string
	Bold        bool
}

// Rule type names accepted on the wire.
const (
	RuleContainsText = "contains_text"
	RuleTextEquals   = "text_equals"
	RuleGreaterThan  = "greater_than"
	RuleLessThan     = "less_than"
	RuleBetween      = "between"
	RuleDuplicates   = "duplicates"
	RuleReplaceText  = "replace_text"
)

var ruleTypes = map[string]bool{
	RuleContainsText: true, RuleTextEquals: true, RuleGreaterThan: true,
	RuleLessThan: true, RuleBetween: true, RuleDuplicates: true,
	RuleReplaceText: true,
}

// Chart is a directive carried through for downstream rendering; this core
// validates its shape only.
type Chart struct {
	Type string // bar, line, pie, histogram, scatter
	X    string
	Y    string
}

var chartTypes = map[string]bool{
	"bar": true, "line": true, "pie": true, "histogram": true, "scatter": true,
}

// Plan is the validated output of the plan-generation model.
type Plan struct {
	Operations []Operation
	FormatRule *FormatRule
	Chart      *Chart
}

// ValidationError reports a structurally invalid plan or operation. It is a
// recoverable condition, never a crash.
type ValidationError struct {
	Index  int // operation index, -1 for plan-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid operation %d: %s", e.Index+1, e.Reason)
	}
	return fmt.Sprintf("invalid plan: %s", e.Reason)
}

// UpstreamError wraps failures of the plan-generation collaborator:
// unreachable provider or output that cannot be parsed at all.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
