package tools

import (
	"strings"
	"unicode"
)

// Range is an inclusive, 1-based line range.
type Range struct {
	Start int
	End   int
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "how": true, "what": true,
	"where": true, "does": true, "with": true, "this": true, "that": true,
	"are": true, "from": true, "into": true, "which": true, "when": true,
	"why": true, "who": true, "use": true, "used": true, "get": true,
}

// queryTerms lowercases query and returns its distinct words of three or
// more characters, in order. camelCase and snake_case words are split.
func queryTerms(query string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) >= 3 {
			words = append(words, strings.ToLower(string(cur)))
		}
		cur = cur[:0]
	}
	var prev rune
	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()

	seen := make(map[string]bool, len(words))
	terms := words[:0]
	for _, w := range words {
		if seen[w] || stopWords[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// relevantRanges returns the line ranges of lines that mention any term,
// widened by pad lines on each side and merged. At most maxLines lines are
// covered. Without a match the head of the file is returned.
func relevantRanges(lines []string, terms []string, pad, maxLines int) []Range {
	if len(lines) == 0 || maxLines <= 0 {
		return nil
	}

	var ranges []Range
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !containsAny(lower, terms) {
			continue
		}
		r := Range{Start: max(1, i+1-pad), End: min(len(lines), i+1+pad)}
		if n := len(ranges); n > 0 && r.Start <= ranges[n-1].End+1 {
			ranges[n-1].End = max(ranges[n-1].End, r.End)
			continue
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return []Range{{Start: 1, End: min(len(lines), maxLines)}}
	}

	budget := maxLines
	out := ranges[:0]
	for _, r := range ranges {
		if budget <= 0 {
			break
		}
		if size := r.End - r.Start + 1; size > budget {
			r.End = r.Start + budget - 1
		}
		budget -= r.End - r.Start + 1
		out = append(out, r)
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func joinLines(lines []string, r Range) string {
	return strings.Join(lines[r.Start-1:r.End], "\n")
}
