package notes

import (
	"errors"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mveldt/clipnotes/internal/store"
)

const (
	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 20

	snippetRadius      = 30
	maxContextSnippets = 3
)

// Suggestion entry types.
const (
	SuggestionContent = "content"
	SuggestionTag     = "tag"
)

type Suggestion struct {
	Text      string `json:"text"`
	Type      string `json:"type"`
	Frequency int    `json:"frequency"`
	Context   string `json:"context,omitempty"`
}

var validSuggestionTypes = map[string]bool{
	"content": true,
	"tags":    true,
	"both":    true,
}

// Suggest scans all of the user's notes and returns autocomplete
// candidates containing the query, ranked by how often they occur.
// Ties keep first-seen order.
func (s *Service) Suggest(userID, query string, limit int, typ string) ([]Suggestion, error) {
	var violations []string

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		violations = append(violations, "query is required")
	}
	if typ == "" {
		typ = "both"
	}
	if !validSuggestionTypes[typ] {
		violations = append(violations, "type must be one of content, tags, both")
	}
	if len(violations) > 0 {
		return nil, validationError(violations...)
	}

	switch {
	case limit == 0:
		limit = DefaultSuggestionLimit
	case limit < 1:
		limit = 1
	case limit > MaxSuggestionLimit:
		limit = MaxSuggestionLimit
	}

	texts, err := s.store.ListTexts(userID)
	if err != nil {
		s.logger.Error("load notes for suggestions failed", "error", err)
		return nil, errors.New("failed to suggest notes")
	}

	suggestions := []Suggestion{}
	if typ == "content" || typ == "both" {
		suggestions = append(suggestions, contentSuggestions(texts, q)...)
	}
	if typ == "tags" || typ == "both" {
		suggestions = append(suggestions, tagSuggestions(texts, q)...)
	}

	slices.SortStableFunc(suggestions, func(a, b Suggestion) int {
		return b.Frequency - a.Frequency
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// tokenize lowercases the text, replaces non-word runes with spaces,
// and splits on whitespace.
func tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Fields(mapped)
}

// contentSuggestions counts content tokens longer than two runes that
// contain the lowered query but are not the query itself. Each distinct
// token collects up to three context snippets, one per note, taken
// around the token's first occurrence there; the first snippet found is
// the one surfaced.
func contentSuggestions(texts []store.NoteText, query string) []Suggestion {
	type tokenStats struct {
		count    int
		contexts []string
	}
	stats := make(map[string]*tokenStats)
	var order []string

	for _, t := range texts {
		snippeted := make(map[string]bool)
		for _, token := range tokenize(t.Content) {
			if utf8.RuneCountInString(token) <= 2 {
				continue
			}
			if !strings.Contains(token, query) || token == query {
				continue
			}
			st, ok := stats[token]
			if !ok {
				st = &tokenStats{}
				stats[token] = st
				order = append(order, token)
			}
			st.count++
			if !snippeted[token] && len(st.contexts) < maxContextSnippets {
				if snip := snippet(t.Content, token); snip != "" {
					st.contexts = append(st.contexts, snip)
				}
				snippeted[token] = true
			}
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, token := range order {
		st := stats[token]
		s := Suggestion{Text: token, Type: SuggestionContent, Frequency: st.count}
		if len(st.contexts) > 0 {
			s.Context = st.contexts[0]
		}
		out = append(out, s)
	}
	return out
}

// tagSuggestions counts tags whose lowered form contains the query but
// is not the query itself. Distinct casings stay distinct entries, each
// keeping its stored casing.
func tagSuggestions(texts []store.NoteText, query string) []Suggestion {
	counts := make(map[string]int)
	var order []string

	for _, t := range texts {
		for _, tag := range t.Tags {
			lowered := strings.ToLower(tag)
			if !strings.Contains(lowered, query) || lowered == query {
				continue
			}
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, tag := range order {
		out = append(out, Suggestion{Text: tag, Type: SuggestionTag, Frequency: counts[tag]})
	}
	return out
}

// snippet extracts the trimmed text around the first occurrence of
// token in content, thirty runes to each side. The match runs over a
// rune-for-rune lowered copy so indexes stay aligned for any script.
func snippet(content, token string) string {
	runes := []rune(content)
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}
	target := []rune(token)

	idx := -1
	for i := 0; i+len(target) <= len(lowered); i++ {
		match := true
		for j, r := range target {
			if lowered[i+j] != r {
				match = false
				break
			}
		}
		if match {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}

	start := max(idx-snippetRadius, 0)
	end := min(idx+len(target)+snippetRadius, len(runes))
	return strings.TrimSpace(string(runes[start:end]))
}

// ListTags returns every distinct tag across the user's notes. Casing
// collisions keep the first-seen form; the result is sorted
// case-insensitively.
func (s *Service) ListTags(userID string) ([]string, error) {
	texts, err := s.store.ListTexts(userID)
	if err != nil {
		s.logger.Error("load notes for tags failed", "error", err)
		return nil, errors.New("failed to list tags")
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, t := range texts {
		for _, tag := range t.Tags {
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, tag)
		}
	}

	slices.SortFunc(tags, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return tags, nil
}
