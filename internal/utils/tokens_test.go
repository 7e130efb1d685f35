package utils_test

import (
	"strings"
	"testing"

	"github.com/sheetwise/sheetwise/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1}, // non-empty always counts
		{"delete column Notes", 4},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got != c.want {
			t.Errorf("CountTokens(%d chars) = %d, want %d", len(c.in), got, c.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	prompt := strings.Repeat("Name | Region | Amount\n", 500)
	trunc := utils.TruncateToTokenLimit(prompt, 250)
	if got := utils.CountTokens(trunc); got > 250 {
		t.Fatalf("truncated prompt still counts %d tokens", got)
	}
	if trunc == "" {
		t.Fatalf("truncation emptied the prompt")
	}
	if utils.TruncateToTokenLimit(prompt, 0) != "" {
		t.Fatalf("zero limit must drop everything")
	}
	short := "sort by Amount"
	if utils.TruncateToTokenLimit(short, 1000) != short {
		t.Fatalf("text under the limit must pass through unchanged")
	}
}
