package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Wire shapes as the model produces them. Operations carry either a
// primitive name with params or a script fragment.
type wirePlan struct {
	Operations []wireOperation `json:"operations"`
	FormatRule *wireFormatRule `json:"format_rule"`
	Chart      *wireChart      `json:"chart"`
}

type wireOperation struct {
	Op          string         `json:"op"`
	Params      map[string]any `json:"params"`
	Script      string         `json:"script"`
	Description string         `json:"description"`
}

type wireFormatRule struct {
	Type        string   `json:"type"`
	Column      string   `json:"column"`
	Columns     []string `json:"columns"`
	Text        string   `json:"text"`
	Replacement string   `json:"replacement"`
	Threshold   float64  `json:"threshold"`
	Upper       float64  `json:"upper"`
	BgColor     string   `json:"bg_color"`
	FontColor   string   `json:"font_color"`
	Bold        bool     `json:"bold"`
}

type wireChart struct {
	Type string `json:"type"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

var fenceRe = regexp.MustCompile("```[a-z]*\n?")
var looseJSONRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}[^{}]*)*\}`)

// ExtractJSON strips markdown fences from model output and, failing a clean
// parse, falls back to the first JSON-object-shaped span in the text.
func ExtractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if strings.Contains(s, "```") {
		s = fenceRe.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s, nil
	}
	if m := looseJSONRe.FindString(s); m != "" && json.Valid([]byte(m)) {
		return m, nil
	}
	return "", fmt.Errorf("no JSON object found in model output")
}

// Parse decodes and normalizes model output into a Plan. The result still
// needs Validate before execution.
func Parse(content string) (*Plan, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	var wp wirePlan
	if err := json.Unmarshal([]byte(raw), &wp); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	p := &Plan{}
	for _, wo := range wp.Operations {
		op := Operation{Description: strings.TrimSpace(wo.Description)}
		script := strings.TrimSpace(wo.Script)
		name := strings.TrimSpace(strings.ToLower(wo.Op))
		switch {
		case script != "":
			op.Script = &Script{Source: script}
		case name != "":
			params := wo.Params
			if params == nil {
				params = map[string]any{}
			}
			op.Primitive = &Primitive{Kind: PrimitiveKind(name), Params: params}
		default:
			// Empty operations are dropped during normalization rather
			// than failing the whole plan.
			continue
		}
		if op.Description == "" {
			op.Description = describeFallback(op)
		}
		p.Operations = append(p.Operations, op)
	}

	if wp.FormatRule != nil && wp.FormatRule.Type != "" {
		p.FormatRule = &FormatRule{
			Type:        strings.ToLower(strings.TrimSpace(wp.FormatRule.Type)),
			Column:      strings.TrimSpace(wp.FormatRule.Column),
			Columns:     wp.FormatRule.Columns,
			Text:        wp.FormatRule.Text,
			Replacement: wp.FormatRule.Replacement,
			Threshold:   wp.FormatRule.Threshold,
			Upper:       wp.FormatRule.Upper,
			BgColor:     wp.FormatRule.BgColor,
			FontColor:   wp.FormatRule.FontColor,
			Bold:        wp.FormatRule.Bold,
		}
		if p.FormatRule.BgColor == "" {
			p.FormatRule.BgColor = "#FFF3CD"
		}
	}
	if wp.Chart != nil && wp.Chart.Type != "" && wp.Chart.Type != "none" {
		p.Chart = &Chart{
			Type: strings.ToLower(strings.TrimSpace(wp.Chart.Type)),
			X:    strings.TrimSpace(wp.Chart.X),
			Y:    strings.TrimSpace(wp.Chart.Y),
		}
	}
	return p, nil
}

func describeFallback(op Operation) string {
	if op.Primitive != nil {
		return fmt.Sprintf("Apply %s", op.Primitive.Kind)
	}
	return "Run transform script"
}
