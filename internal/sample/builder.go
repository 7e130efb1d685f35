package sample

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

const (
	DefaultMaxRows = 60
	DefaultMinRows = 10
	// Cells longer than this are truncated when the sample is serialized
	// for a prompt. Selection is unaffected.
	DefaultCellCap = 300
)

// Selection priority classes, lowest dropped first when over budget.
const (
	prioStratified = iota
	prioMissingEdge
	prioCategorical
	prioNumeric
	prioDatetime
)

// Sample is a row subset of a source dataset carrying every source column,
// plus an explanation of why the rows were chosen.
type Sample struct {
	Data        *dataset.Dataset
	Indices     []int // source row indices, ascending
	Explanation string
}

// Builder constructs representative samples. The zero value is not usable;
// use NewBuilder.
type Builder struct {
	maxRows int
	minRows int
	cellCap int
}

func NewBuilder(maxRows, minRows int) *Builder {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if minRows <= 0 {
		minRows = DefaultMinRows
	}
	if minRows > maxRows {
		minRows = maxRows
	}
	return &Builder{maxRows: maxRows, minRows: minRows, cellCap: DefaultCellCap}
}

// WithCellCap overrides the per-cell character cap used by PromptRows.
// Non-positive values keep the default.
func (b *Builder) WithCellCap(n int) *Builder {
	if n > 0 {
		b.cellCap = n
	}
	return b
}

// Build selects a bounded, diverse subset of rows. Guarantees: every source
// column appears in the sample, rows are a strict subset of source rows,
// and the result is identical for identical input.
func (b *Builder) Build(d *dataset.Dataset) Sample {
	total := d.NumRows()
	if total == 0 {
		return Sample{
			Data:        d.SelectRows(nil),
			Explanation: "Dataset is empty; returning an empty sample.",
		}
	}
	if total <= b.maxRows {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return Sample{
			Data:        d.SelectRows(all),
			Indices:     all,
			Explanation: fmt.Sprintf("Full dataset returned: %d rows fit within the %d-row sample budget.", total, b.maxRows),
		}
	}

	// priority[row] holds the highest selection class that claimed the row.
	priority := map[int]int{}
	claim := func(row, prio int) {
		if row < 0 || row >= total {
			return
		}
		if cur, ok := priority[row]; !ok || prio > cur {
			priority[row] = prio
		}
	}

	var rationale []string
	profiles := make([]ColumnProfile, d.NumCols())
	for ci := 0; ci < d.NumCols(); ci++ {
		profiles[ci] = Profile(d, ci)
	}

	// categoryOwner tracks, per categorical column, the representative row
	// for each distinct value so truncation can protect coverage.
	protected := map[int]int{} // row -> number of categories it solely represents

	for _, p := range profiles {
		switch p.Kind {
		case KindNumeric:
			claim(p.MinRow, prioNumeric)
			claim(p.Q25Row, prioNumeric)
			claim(p.MedianRow, prioNumeric)
			claim(p.Q75Row, prioNumeric)
			claim(p.MaxRow, prioNumeric)
			for _, r := range p.OutlierRows {
				claim(r, prioNumeric)
			}
			rationale = append(rationale, fmt.Sprintf("Captured numeric spread for %q (min/quartiles/max plus outliers).", p.Name))
		case KindCategorical, KindBoolean:
			for _, r := range p.CategoryRows {
				claim(r, prioCategorical)
				protected[r]++
			}
			if p.MissingRow >= 0 {
				claim(p.MissingRow, prioCategorical)
			}
			rationale = append(rationale, fmt.Sprintf("Included one row per distinct value of %q.", p.Name))
		case KindDatetime:
			claim(p.EarliestRow, prioDatetime)
			claim(p.MiddleRow, prioDatetime)
			claim(p.LatestRow, prioDatetime)
			rationale = append(rationale, fmt.Sprintf("Covered the date range of %q (earliest/middle/latest).", p.Name))
		default:
			if p.MissingRow >= 0 {
				claim(p.MissingRow, prioMissingEdge)
			}
		}
	}

	// Rows with the highest per-row missing counts are edge cases worth
	// showing the model.
	if edge := topMissingRows(d, 2); len(edge) > 0 {
		for _, r := range edge {
			claim(r, prioMissingEdge)
		}
		rationale = append(rationale, "Captured rows with high missing-value counts.")
	}

	if len(priority) < b.minRows {
		added := b.stratifiedFill(total, priority, b.minRows-len(priority))
		if added > 0 {
			rationale = append(rationale, fmt.Sprintf("Added %d evenly spaced rows to reach the minimum sample size.", added))
		}
	}

	if len(priority) > b.maxRows {
		dropped := truncate(priority, protected, b.maxRows)
		rationale = append(rationale, fmt.Sprintf("Dropped %d lowest-priority rows to fit the %d-row budget.", dropped, b.maxRows))
	}

	indices := make([]int, 0, len(priority))
	for r := range priority {
		indices = append(indices, r)
	}
	sort.Ints(indices)

	return Sample{
		Data:        d.SelectRows(indices),
		Indices:     indices,
		Explanation: buildExplanation(total, len(indices), rationale),
	}
}

// stratifiedFill claims up to want rows evenly spaced by row index among
// rows not yet selected. Returns how many were added.
func (b *Builder) stratifiedFill(total int, priority map[int]int, want int) int {
	if want <= 0 {
		return 0
	}
	var remaining []int
	for i := 0; i < total; i++ {
		if _, ok := priority[i]; !ok {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 0 {
		return 0
	}
	if want > len(remaining) {
		want = len(remaining)
	}
	step := float64(len(remaining)) / float64(want)
	added := 0
	for k := 0; k < want; k++ {
		r := remaining[int(float64(k)*step)]
		if _, ok := priority[r]; !ok {
			priority[r] = prioStratified
			added++
		}
	}
	return added
}

// truncate removes lowest-priority rows until len(priority) == budget.
// Rows that are the sole representative of a category are skipped while
// other candidates remain.
func truncate(priority map[int]int, protected map[int]int, budget int) int {
	type cand struct{ row, prio int }
	cands := make([]cand, 0, len(priority))
	for r, p := range priority {
		cands = append(cands, cand{r, p})
	}
	// Lowest priority first; ties drop the highest row index first so early
	// rows (often more representative of the file) survive.
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].prio != cands[b].prio {
			return cands[a].prio < cands[b].prio
		}
		return cands[a].row > cands[b].row
	})
	dropped := 0
	// First pass skips category representatives; second pass drops them too
	// if the budget still cannot be met.
	for pass := 0; pass < 2 && len(priority) > budget; pass++ {
		for _, c := range cands {
			if len(priority) <= budget {
				break
			}
			if _, ok := priority[c.row]; !ok {
				continue
			}
			if pass == 0 && protected[c.row] > 0 {
				continue
			}
			delete(priority, c.row)
			dropped++
		}
	}
	return dropped
}

func topMissingRows(d *dataset.Dataset, n int) []int {
	total := d.NumRows()
	counts := make([]int, total)
	for ci := 0; ci < d.NumCols(); ci++ {
		for i, v := range d.ColumnAt(ci).Cells {
			if v.IsMissing() {
				counts[i]++
			}
		}
	}
	type rc struct{ row, miss int }
	rows := make([]rc, 0, total)
	for i, c := range counts {
		if c > 0 {
			rows = append(rows, rc{i, c})
		}
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].miss != rows[b].miss {
			return rows[a].miss > rows[b].miss
		}
		return rows[a].row < rows[b].row
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

func buildExplanation(total, selected int, rationale []string) string {
	parts := []string{fmt.Sprintf("Selected %d rows out of %d to balance numeric ranges, categories, dates, and missing-value edge cases.", selected, total)}
	parts = append(parts, rationale...)
	return strings.Join(parts, " ")
}

// PromptRows serializes the sample as string records for a model prompt,
// truncating any cell longer than the configured cap with an ellipsis.
func (b *Builder) PromptRows(s Sample) [][]string {
	limit := b.cellCap
	out := make([][]string, 0, s.Data.NumRows())
	for i := 0; i < s.Data.NumRows(); i++ {
		row := s.Data.Row(i)
		rec := make([]string, len(row))
		for j, v := range row {
			cell := v.String()
			if len(cell) > limit {
				cell = cell[:limit] + "…"
			}
			rec[j] = cell
		}
		out = append(out, rec)
	}
	return out
}
