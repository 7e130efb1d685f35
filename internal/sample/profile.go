// Package sample reduces large datasets to small, diverse row subsets that
// fit a model's context budget while preserving selection-relevant signal.
package sample

import (
	"math"
	"sort"
	"time"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

// ColumnKind classifies a column for sampling purposes.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
	KindText        ColumnKind = "text"
	KindBoolean     ColumnKind = "boolean"
)

// Distinct text values above this cap make a column free text rather than
// categorical.
const maxCategories = 60

// ColumnProfile captures per-column classification and summary stats. It is
// derived on demand to drive row selection and is never persisted.
type ColumnProfile struct {
	Name    string
	Kind    ColumnKind
	Missing int

	// Numeric
	Min, Q25, Median, Q75, Max float64
	// Row indices achieving the stats above, and up to two IQR outliers.
	MinRow, Q25Row, MedianRow, Q75Row, MaxRow int
	OutlierRows                               []int

	// Categorical: first row index per distinct value, in first-appearance
	// order, plus the first row exhibiting a missing value (-1 if none).
	CategoryRows  []int
	DistinctCount int
	MissingRow    int

	// Datetime
	EarliestRow, MiddleRow, LatestRow int
}

// Profile computes a ColumnProfile for the column at index ci.
func Profile(d *dataset.Dataset, ci int) ColumnProfile {
	col := d.ColumnAt(ci)
	p := ColumnProfile{Name: col.Name, MissingRow: -1}

	var numCnt, dtCnt, txtCnt, boolCnt int
	for i, v := range col.Cells {
		switch v.Kind() {
		case dataset.KindNumber:
			numCnt++
		case dataset.KindTime:
			dtCnt++
		case dataset.KindBool:
			boolCnt++
		case dataset.KindText:
			txtCnt++
		default:
			p.Missing++
			if p.MissingRow < 0 {
				p.MissingRow = i
			}
		}
	}

	switch {
	case numCnt >= dtCnt && numCnt >= txtCnt && numCnt >= boolCnt && numCnt > 0:
		p.Kind = KindNumeric
		profileNumeric(&p, col.Cells)
	case dtCnt >= txtCnt && dtCnt >= boolCnt && dtCnt > 0:
		p.Kind = KindDatetime
		profileDatetime(&p, col.Cells)
	case boolCnt >= txtCnt && boolCnt > 0:
		p.Kind = KindBoolean
		profileCategorical(&p, col.Cells)
	case txtCnt > 0:
		profileCategorical(&p, col.Cells)
		if p.DistinctCount > maxCategories {
			p.Kind = KindText
			p.CategoryRows = nil
		} else {
			p.Kind = KindCategorical
		}
	default:
		// Entirely missing: treat as text so the missing-value carve-out
		// still represents it.
		p.Kind = KindText
	}
	return p
}

type indexed struct {
	val float64
	row int
}

func profileNumeric(p *ColumnProfile, cells []dataset.Value) {
	var vals []indexed
	for i, v := range cells {
		if f, ok := v.Float(); ok && v.Kind() == dataset.KindNumber {
			vals = append(vals, indexed{f, i})
		}
	}
	if len(vals) == 0 {
		return
	}
	sort.SliceStable(vals, func(a, b int) bool {
		if vals[a].val == vals[b].val {
			return vals[a].row < vals[b].row
		}
		return vals[a].val < vals[b].val
	})
	p.Min, p.MinRow = vals[0].val, vals[0].row
	p.Max, p.MaxRow = vals[len(vals)-1].val, vals[len(vals)-1].row
	q25 := quantileEntry(vals, 0.25)
	q50 := quantileEntry(vals, 0.5)
	q75 := quantileEntry(vals, 0.75)
	p.Q25, p.Q25Row = q25.val, q25.row
	p.Median, p.MedianRow = q50.val, q50.row
	p.Q75, p.Q75Row = q75.val, q75.row

	iqr := p.Q75 - p.Q25
	lo := p.Q25 - 1.5*iqr
	hi := p.Q75 + 1.5*iqr
	var outliers []int
	for _, e := range vals {
		if e.val < lo || e.val > hi {
			outliers = append(outliers, e.row)
		}
	}
	sort.Ints(outliers)
	if len(outliers) > 2 {
		outliers = outliers[:2]
	}
	p.OutlierRows = outliers
}

// quantileEntry picks the entry closest to the q position in the sorted
// slice: a real row, never an interpolated value.
func quantileEntry(sorted []indexed, q float64) indexed {
	pos := q * float64(len(sorted)-1)
	i := int(math.Round(pos))
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func profileDatetime(p *ColumnProfile, cells []dataset.Value) {
	type tsEntry struct {
		t   time.Time
		row int
	}
	var vals []tsEntry
	for i, v := range cells {
		if t, ok := v.Time(); ok {
			vals = append(vals, tsEntry{t, i})
		}
	}
	if len(vals) == 0 {
		p.EarliestRow, p.MiddleRow, p.LatestRow = -1, -1, -1
		return
	}
	sort.SliceStable(vals, func(a, b int) bool {
		if vals[a].t.Equal(vals[b].t) {
			return vals[a].row < vals[b].row
		}
		return vals[a].t.Before(vals[b].t)
	})
	p.EarliestRow = vals[0].row
	p.MiddleRow = vals[len(vals)/2].row
	p.LatestRow = vals[len(vals)-1].row
}

func profileCategorical(p *ColumnProfile, cells []dataset.Value) {
	seen := map[string]bool{}
	for i, v := range cells {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if !seen[key] {
			seen[key] = true
			p.CategoryRows = append(p.CategoryRows, i)
		}
	}
	p.DistinctCount = len(seen)
}
