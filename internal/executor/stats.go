package executor

import (
	"fmt"
	"sort"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

// columnStat is the narrow statistics surface exposed to fill strategies,
// aggregations, and sandboxed scripts: mean, median, min, max, sum over the
// numeric cells of a column. Non-numeric cells are skipped.
func columnStat(cells []dataset.Value, stat string) (float64, error) {
	var vals []float64
	for _, v := range cells {
		if v.IsMissing() {
			continue
		}
		if f, ok := v.Float(); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("no numeric values available for %q", stat)
	}
	switch stat {
	case "mean", "average", "avg":
		sum := 0.0
		for _, f := range vals {
			sum += f
		}
		return sum / float64(len(vals)), nil
	case "median":
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 0 {
			return (vals[mid-1] + vals[mid]) / 2, nil
		}
		return vals[mid], nil
	case "min":
		out := vals[0]
		for _, f := range vals[1:] {
			if f < out {
				out = f
			}
		}
		return out, nil
	case "max":
		out := vals[0]
		for _, f := range vals[1:] {
			if f > out {
				out = f
			}
		}
		return out, nil
	case "sum":
		sum := 0.0
		for _, f := range vals {
			sum += f
		}
		return sum, nil
	default:
		return 0, fmt.Errorf("unknown statistic %q", stat)
	}
}
