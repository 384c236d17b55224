// Package esg turns ESG score sheets into normalized company records.
//
// The pipeline is pure: Parse splits text into rows, Classify and Extract
// derive per-metric fields, Aggregate groups metrics per company and
// Normalize finalizes each record for the document store.
package esg

import (
	"strings"
)

// Delimiter separates columns in score sheets.
const Delimiter = ','

// RequiredColumns must each appear in the header, case-insensitively and as a
// substring of some column name.
var RequiredColumns = []string{"Name", "Metric", "Score", "Description"}

// RawRow is one data line of a score sheet, positionally aligned with the
// header it was read under.
type RawRow struct {
	Line   int
	Values []string
}

// Value returns the trimmed value at column i, or "" when the row is short.
func (r RawRow) Value(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Sheet is a parsed score sheet.
type Sheet struct {
	Header []string
	Rows   []RawRow
	Layout Layout
}

// Parse reads delimiter-separated text into a Sheet. It fails with a
// FormatError when there is no header or no data line, or when the header
// lacks one of RequiredColumns. Data lines with fewer than three values are
// dropped.
func Parse(text string) (*Sheet, error) {
	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, NewFormatError("need a header and at least one data row, got %d non-blank lines", len(lines))
	}

	header := SplitLine(lines[0].text)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, NewFormatError("header must contain %s (missing %s)",
			strings.Join(RequiredColumns, ", "), strings.Join(missing, ", "))
	}

	sheet := &Sheet{Header: header, Layout: ResolveLayout(header)}
	for _, ln := range lines[1:] {
		values := SplitLine(ln.text)
		if len(values) < 3 {
			continue
		}
		row := RawRow{Line: ln.number, Values: make([]string, len(header))}
		for i := range header {
			if i < len(values) {
				row.Values[i] = strings.TrimSpace(values[i])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// SplitLine splits one line on Delimiter. A double quote toggles quoted mode,
// in which the delimiter is literal; quote characters are not kept.
func SplitLine(line string) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == Delimiter && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

type numberedLine struct {
	number int
	text   string
}

func nonBlankLines(text string) []numberedLine {
	var out []numberedLine
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, numberedLine{number: i + 1, text: l})
	}
	return out
}

func missingColumns(header []string) []string {
	var missing []string
	for _, want := range RequiredColumns {
		w := strings.ToLower(want)
		found := false
		for _, h := range header {
			if strings.Contains(strings.ToLower(h), w) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}
