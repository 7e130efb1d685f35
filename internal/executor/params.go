package executor

import (
	"fmt"

	"github.com/sheetwise/sheetwise/internal/dataset"
)

// Typed accessors over the loosely typed primitive params. Each reports a
// descriptive error naming the parameter.

func stringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing param %q", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("param %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalString(params map[string]any, key, def string) string {
	if raw, ok := params[key]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func optionalBool(params map[string]any, key string, def bool) bool {
	if raw, ok := params[key]; ok {
		if b, ok := raw.(bool); ok {
			return b
		}
	}
	return def
}

func intParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing param %q", key)
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("param %q must be a number", key)
	}
}

func intsParam(params map[string]any, key string) ([]int, error) {
	raw, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing param %q", key)
	}
	list, ok := raw.([]any)
	if !ok {
		// A lone number is accepted as a one-element list.
		if f, ok := raw.(float64); ok {
			return []int{int(f)}, nil
		}
		return nil, fmt.Errorf("param %q must be a list of row indices", key)
	}
	out := make([]int, 0, len(list))
	for _, e := range list {
		f, ok := e.(float64)
		if !ok {
			return nil, fmt.Errorf("param %q must contain only numbers", key)
		}
		out = append(out, int(f))
	}
	return out, nil
}

// valueParam converts an arbitrary JSON value into a dataset cell.
func valueParam(params map[string]any, key string) (dataset.Value, error) {
	raw, ok := params[key]
	if !ok {
		return dataset.Missing(), fmt.Errorf("missing param %q", key)
	}
	return anyToValue(raw), nil
}

func anyToValue(raw any) dataset.Value {
	switch v := raw.(type) {
	case nil:
		return dataset.Missing()
	case float64:
		return dataset.Number(v)
	case bool:
		return dataset.Bool(v)
	case string:
		return dataset.ParseCell(v)
	default:
		return dataset.Text(fmt.Sprintf("%v", v))
	}
}

// requireColumn re-validates a column reference against the current frame.
// Earlier operations may have renamed or removed columns, so this runs
// before every operation that touches one.
func requireColumn(d *dataset.Dataset, name string) error {
	if d.ColumnIndex(name) < 0 {
		return fmt.Errorf("column %q not found in current dataset (columns: %v)", name, d.ColumnNames())
	}
	return nil
}
