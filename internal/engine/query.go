package engine

import "strings"

// ParsedQuery is a user query split into its filters and free-text target.
type ParsedQuery struct {
	Raw      string   `json:"raw"`
	Target   string   `json:"target"`
	Repos    []string `json:"repos,omitempty"`
	Langs    []string `json:"langs,omitempty"`
	Branches []string `json:"branches,omitempty"`
}

// ParseQuery extracts repo:, lang: and branch: filters from text. Every
// other token becomes part of the target, in order.
func ParseQuery(text string) ParsedQuery {
	q := ParsedQuery{Raw: text}
	var target []string
	for _, tok := range strings.Fields(text) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			target = append(target, tok)
			continue
		}
		switch strings.ToLower(key) {
		case "repo":
			q.Repos = append(q.Repos, value)
		case "lang":
			q.Langs = append(q.Langs, strings.ToLower(value))
		case "branch":
			q.Branches = append(q.Branches, value)
		default:
			target = append(target, tok)
		}
	}
	q.Target = strings.Join(target, " ")
	return q
}

// FirstBranch returns the first branch filter, or "" when none was given.
func (q ParsedQuery) FirstBranch() string {
	if len(q.Branches) == 0 {
		return ""
	}
	return q.Branches[0]
}

// HasTarget reports whether the query has free text to search for.
func (q ParsedQuery) HasTarget() bool {
	return strings.TrimSpace(q.Target) != ""
}
