package plan

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a spreadsheet operations planner. You translate one user
instruction into a JSON action plan executed against the full dataset.

Respond with ONLY a JSON object, no markdown, no prose:

{
  "operations": [
    {"op": "sort", "params": {"column": "Date", "ascending": true}, "description": "Sort by Date"},
    {"script": "filter(Amount > 1000) | sort(Amount, desc)", "description": "Keep large amounts, largest first"}
  ],
  "format_rule": {"type": "contains_text", "column": "Status", "text": "overdue", "bg_color": "#FFF3CD"},
  "chart": {"type": "bar", "x": "Region", "y": "Revenue"}
}

Primitive ops: drop_duplicates, fill_missing, drop_missing, filter,
group_aggregate, sort, add_column, delete_column, rename_column, add_row,
delete_rows, edit_cell, clear_cell, replace_text.
Use a script only when no primitive fits. Scripts are pipelines of the verbs
filter, sort, select, drop, fill, replace, limit joined by "|".

Format rule types: contains_text, text_equals, greater_than, less_than,
between, duplicates, replace_text.

Rules:
1. Reference columns by their ACTUAL names from the column list, never by
   Excel letters.
2. The sample below is a subset; your plan runs against every row of the
   real dataset.
3. Omit "format_rule" and "chart" unless the user asked for them.
4. Every operation needs a short human-readable "description".`

// Example is a retrieved instruction/plan pair injected as few-shot context.
type Example struct {
	Prompt   string
	Response string
}

// BuildPrompt assembles the user message for plan generation: instruction,
// indexed column list with Excel-letter mapping, the sample rows with their
// explanation, and optional few-shot examples. The full dataset is never
// included.
func BuildPrompt(instruction string, columns []string, sampleRows [][]string, explanation string, examples []Example) string {
	var b strings.Builder

	b.WriteString("[COLUMNS]\n")
	for i, c := range columns {
		b.WriteString(fmt.Sprintf("%d. %s (Excel column %s)\n", i+1, c, columnLetter(i)))
	}

	if len(examples) > 0 {
		b.WriteString("\n[EXAMPLES]\n")
		for i, ex := range examples {
			b.WriteString(fmt.Sprintf("Example %d:\nUser: %s\nResponse: %s\n", i+1, ex.Prompt, ex.Response))
		}
	}

	if explanation != "" {
		b.WriteString("\n[SAMPLE EXPLANATION]\n")
		b.WriteString(explanation)
		b.WriteString("\n")
	}

	if len(sampleRows) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		writeMarkdownTable(&b, columns, sampleRows)
	}

	b.WriteString("\n[INSTRUCTION]\n")
	b.WriteString(instruction)
	return b.String()
}

func writeMarkdownTable(b *strings.Builder, columns []string, rows [][]string) {
	b.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeCell(c))
	}
	b.WriteString(" |\n| ")
	for i := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			if i < len(row) {
				b.WriteString(safeCell(row[i]))
			}
		}
		b.WriteString(" |\n")
	}
}

func safeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

func columnLetter(i int) string {
	letter := ""
	n := i
	for {
		letter = string(rune('A'+n%26)) + letter
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return letter
}
