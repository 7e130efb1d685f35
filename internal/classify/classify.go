// Package classify decides whether a natural-language instruction needs the
// expensive model tier. It works on instruction text alone, before any
// dataset-heavy work, and only calls a model for genuinely ambiguous input.
package classify

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sheetwise/sheetwise/internal/ai"
)

// Complexity is the routing verdict for an instruction.
type Complexity string

const (
	Simple  Complexity = "SIMPLE"
	Complex Complexity = "COMPLEX"
)

// Classifier applies two lexical tiers and, only for the ambiguous
// remainder, one constrained call to a cheap model. A nil runtime degrades
// to keyword-only classification.
type Classifier struct {
	runtime ai.Runtime
	model   string
	timeout time.Duration
	warnf   func(format string, args ...any)

	// CallCount counts fallback model invocations; used by callers for
	// cost reporting and by tests.
	CallCount int
}

func New(runtime ai.Runtime, model string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Classifier{
		runtime: runtime,
		model:   model,
		timeout: timeout,
		warnf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "⚠ Warning: "+format+"\n", args...)
		},
	}
}

var connectives = []string{
	"and then", "after that", "also", "as well as", "followed by", "; ",
}

var advancedKeywords = []string{
	"vlookup", "xlookup", "hlookup", "index match", "sumifs", "countifs",
	"nested if", "pivot", "cross-reference", "multi-criteria",
}

var simplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(please )?(delete|remove|drop)( the)? column [\w .-]+$`),
	regexp.MustCompile(`^(please )?rename( the)? column [\w .-]+ to [\w .-]+$`),
	regexp.MustCompile(`^(please )?(bold|italicize|underline|highlight|color|colour)( the)? (column|cells?|rows?) ?[\w .-]*$`),
	regexp.MustCompile(`^(please )?(remove|drop) duplicates?$`),
	regexp.MustCompile(`^(please )?sort by [\w .-]+( (ascending|descending))?$`),
}

var operationVerbs = []string{
	"delete", "remove", "drop", "add", "insert", "sort", "filter", "highlight",
	"group", "sum", "average", "count", "rename", "replace", "merge", "split",
	"calculate", "format", "clean", "fill", "round", "convert", "extract",
}

// Classify returns SIMPLE or COMPLEX. Lexical tiers decide without any
// model call; the fallback call defaults to SIMPLE on any failure, which is
// the cost-safe direction.
func (c *Classifier) Classify(ctx context.Context, instruction string) Complexity {
	text := strings.ToLower(strings.TrimSpace(instruction))
	if text == "" {
		return Simple
	}

	if verdict, decided := classifyLexical(text); decided {
		return verdict
	}
	return c.fallback(ctx, instruction)
}

// classifyLexical runs the two deterministic tiers. decided=false means the
// instruction is ambiguous and needs the fallback call.
func classifyLexical(text string) (Complexity, bool) {
	hasConnective := false
	for _, conn := range connectives {
		if strings.Contains(text, conn) {
			hasConnective = true
			break
		}
	}

	// Fast-simple: one well-known primitive, no multi-step phrasing.
	if !hasConnective {
		for _, p := range simplePatterns {
			if p.MatchString(text) {
				return Simple, true
			}
		}
	}

	// Fast-complex: multi-step connectives, advanced formula keywords, or
	// three distinct operation verbs in one request.
	if hasConnective {
		return Complex, true
	}
	for _, kw := range advancedKeywords {
		if strings.Contains(text, kw) {
			return Complex, true
		}
	}
	if countVerbs(text) >= 3 {
		return Complex, true
	}

	return "", false
}

func countVerbs(text string) int {
	n := 0
	for _, v := range operationVerbs {
		if containsWord(text, v) {
			n++
		}
	}
	return n
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before := start == 0 || !isWordChar(text[start-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

const fallbackSystemPrompt = `You classify spreadsheet instructions by complexity.
Reply with exactly one word: SIMPLE or COMPLEX.
SIMPLE means a single basic operation. COMPLEX means multiple steps, lookups, or multi-criteria logic.`

func (c *Classifier) fallback(ctx context.Context, instruction string) Complexity {
	if c.runtime == nil {
		return Simple
	}
	c.CallCount++
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.runtime.Generate(ctx, ai.GenerateRequest{
		Model: c.model,
		Messages: []ai.Message{
			{Role: "system", Content: fallbackSystemPrompt},
			{Role: "user", Content: instruction},
		},
		MaxTokens:   4,
		Temperature: 0,
	})
	if err != nil {
		c.warnf("complexity fallback call failed, defaulting to SIMPLE: %v", err)
		return Simple
	}
	if len(resp.Choices) == 0 {
		c.warnf("complexity fallback returned no choices, defaulting to SIMPLE")
		return Simple
	}
	label := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch label {
	case string(Complex):
		return Complex
	case string(Simple):
		return Simple
	default:
		c.warnf("complexity fallback returned %q, defaulting to SIMPLE", label)
		return Simple
	}
}
