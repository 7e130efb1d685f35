package dataset

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffPreview renders a line diff of the CSV serialization of two datasets,
// prefixing added lines with "+" and removed lines with "-". Each side is
// capped at maxRows data rows to keep the preview bounded. Identical frames
// yield the empty string, not a run of context lines.
func DiffPreview(before, after *Dataset, maxRows int) string {
	dmp := diffmatchpatch.New()
	a := previewCSV(before, maxRows)
	b := previewCSV(after, maxRows)
	aChars, bChars, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(aChars, bChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	changed := false
	for _, diff := range diffs {
		if diff.Type != diffmatchpatch.DiffEqual {
			changed = true
			break
		}
	}
	if !changed {
		return ""
	}

	var sb strings.Builder
	for _, diff := range diffs {
		lines := strings.Split(diff.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		prefix := "  "
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range lines {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func previewCSV(d *Dataset, maxRows int) string {
	if d == nil {
		return ""
	}
	rows := d.NumRows()
	if maxRows > 0 && rows > maxRows {
		indices := make([]int, maxRows)
		for i := range indices {
			indices[i] = i
		}
		d = d.SelectRows(indices)
	}
	var sb strings.Builder
	_ = d.WriteCSV(&sb)
	return sb.String()
}
