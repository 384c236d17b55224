package esg

import (
	"regexp"
	"strings"
)

// Evidence holds the fields derived from a metric description.
type Evidence struct {
	Source    string
	SourceURL string
	Evidence  string
}

var (
	urlPattern          = regexp.MustCompile(`https?://[^\s,]+`)
	sourcePrefixPattern = regexp.MustCompile(`(?i)^\s*source:\s*[^,\n]+,?\s*`)

	// sourcePatterns are tried in order; the first capture group is the source.
	sourcePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)source:\s*([^,\n]+)`),
		regexp.MustCompile(`(?i)([^,\n]*report[^,\n]*)`),
		regexp.MustCompile(`(?i)([^,\n]*audit[^,\n]*)`),
		regexp.MustCompile(`(?i)([^,\n]*certification[^,\n]*)`),
	}
)

const fallbackSourceLen = 100

// Extract derives source, URL and evidence text from a description.
func Extract(description string) Evidence {
	if strings.TrimSpace(description) == "" {
		return Evidence{}
	}
	return Evidence{
		Source:    ExtractSource(description),
		SourceURL: ExtractSourceURL(description),
		Evidence:  ExtractEvidence(description),
	}
}

// ExtractSourceURL returns the first http(s) URL in s.
func ExtractSourceURL(s string) string {
	return urlPattern.FindString(s)
}

// ExtractSource returns the document a description cites. Without a
// recognizable citation it returns the first sentence, or the first 100
// characters when there is no period.
func ExtractSource(s string) string {
	if s == "" {
		return ""
	}
	for _, p := range sourcePatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if i := strings.Index(s, "."); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(truncateRunes(s, fallbackSourceLen))
}

// ExtractEvidence strips a leading "source: ...," citation and every URL
// from s. Separators left dangling by the removal are trimmed too.
func ExtractEvidence(s string) string {
	out := sourcePrefixPattern.ReplaceAllString(s, "")
	out = urlPattern.ReplaceAllString(out, "")
	if out == s {
		return strings.TrimSpace(s)
	}
	return strings.Trim(out, " \t\r\n,")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
