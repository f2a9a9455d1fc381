package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect is the strategy for everything that differs between the two
// storage backends: how the notes.tags column is encoded, how text and
// tag match predicates are written, and how placeholders are numbered.
type Dialect interface {
	Name() string

	// EncodeTags produces the value written to the notes.tags column.
	EncodeTags(tags []string) (any, error)

	// TagsScanDest returns a fresh scan destination for the tags column.
	TagsScanDest() any

	// DecodeTags reads the tag set back out of a destination returned by
	// TagsScanDest. A malformed stored encoding decodes as empty, never
	// as an error.
	DecodeTags(dst any) []string

	// TextPredicate returns a WHERE fragment matching notes whose text
	// contains query, with its placeholder arguments.
	TextPredicate(query string) (string, []any)

	// TagPredicate returns a WHERE fragment matching notes carrying any
	// of the given tags, with its placeholder arguments.
	TagPredicate(tags []string) (string, []any)

	// Rebind rewrites ? placeholders into the backend's native form.
	Rebind(query string) string
}

// DialectFor returns the Dialect for a configured backend name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", name)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}

// normalizeTags trims each tag, drops empties, and removes exact
// duplicates while preserving first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// sqliteDialect stores tags as a JSON-encoded string column. Tag matching
// is a substring test for the tag's quoted JSON form; free-text matching
// runs against both content and the raw tag encoding.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) EncodeTags(tags []string) (any, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func (sqliteDialect) TagsScanDest() any {
	return &sql.NullString{}
}

func (sqliteDialect) DecodeTags(dst any) []string {
	ns, ok := dst.(*sql.NullString)
	if !ok || !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err != nil {
		return []string{}
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

func (sqliteDialect) TextPredicate(query string) (string, []any) {
	p := "%" + likeEscape(query) + "%"
	return `(content LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`, []any{p, p}
}

func (sqliteDialect) TagPredicate(tags []string) (string, []any) {
	terms := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags))
	for _, t := range tags {
		quoted, _ := json.Marshal(t)
		terms = append(terms, `tags LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(string(quoted))+"%")
	}
	return "(" + strings.Join(terms, " OR ") + ")", args
}

func (sqliteDialect) Rebind(query string) string {
	return query
}

// postgresDialect stores tags as a native text[] column. Tag matching is
// array overlap; free-text matching runs against content only, since the
// array column is not scannable text.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) EncodeTags(tags []string) (any, error) {
	if tags == nil {
		tags = []string{}
	}
	return pq.Array(tags), nil
}

func (postgresDialect) TagsScanDest() any {
	return &pq.StringArray{}
}

func (postgresDialect) DecodeTags(dst any) []string {
	arr, ok := dst.(*pq.StringArray)
	if !ok || *arr == nil {
		return []string{}
	}
	return []string(*arr)
}

func (postgresDialect) TextPredicate(query string) (string, []any) {
	return `content ILIKE ?`, []any{"%" + likeEscape(query) + "%"}
}

func (postgresDialect) TagPredicate(tags []string) (string, []any) {
	return `tags && ?`, []any{pq.Array(tags)}
}

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
