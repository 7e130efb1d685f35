package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindTime:
		return "datetime"
	default:
		return "missing"
	}
}

// Value is a single typed cell. The zero value is a missing cell.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	t    time.Time
}

func Missing() Value         { return Value{} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{kind: KindText, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric value. Non-numeric kinds report ok=false;
// booleans coerce to 0/1 to keep threshold predicates usable.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText:
		if f, ok := parseNumber(v.str); ok {
			return f, true
		}
	}
	return 0, false
}

func (v Value) Time() (time.Time, bool) {
	if v.kind == KindTime {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// String renders the cell for display and CSV output. Missing cells render
// as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Equal reports exact value equality. Missing never equals missing for the
// purposes of duplicate detection the caller decides; here missing == missing.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Less orders values for sorting: missing sorts last, then by kind-aware
// comparison, falling back to string rendering across kinds.
func (v Value) Less(o Value) bool {
	if v.kind == KindMissing {
		return false
	}
	if o.kind == KindMissing {
		return true
	}
	if v.kind == o.kind {
		switch v.kind {
		case KindNumber:
			return v.num < o.num
		case KindText:
			return v.str < o.str
		case KindBool:
			return !v.b && o.b
		case KindTime:
			return v.t.Before(o.t)
		}
	}
	vf, vok := v.Float()
	of, ook := o.Float()
	if vok && ook {
		return vf < of
	}
	return v.String() < o.String()
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseCell infers the richest type a raw string supports: numeric, then
// datetime, then boolean, otherwise text. Empty strings are missing.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing()
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return Time(t)
		}
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return Bool(true)
	case "false", "no":
		return Bool(false)
	}
	return Text(s)
}

// parseNumber accepts plain floats plus common thousands-separated and
// percent forms ("1,234.5", "12%").
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	pct := strings.Contains(raw, "%")
	if pct {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, " ", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	if cpos >= 0 && dpos >= 0 {
		if cpos > dpos {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	} else if cpos >= 0 {
		// Lone comma: decimal separator unless it looks like thousands grouping.
		if len(raw)-cpos-1 == 3 {
			raw = strings.ReplaceAll(raw, ",", "")
		} else {
			raw = strings.ReplaceAll(raw, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
