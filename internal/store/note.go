package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mveldt/clipnotes/internal/model"
)

// Filter is a structured search over one user's notes. Zero-valued
// optional fields are absent: an empty Query or Tags applies no
// constraint rather than matching nothing.
type Filter struct {
	UserID  string
	VideoID string
	Query   string
	Tags    []string
}

// Columns accepted by FindMany as order fields.
const (
	OrderCreatedAt = "created_at"
	OrderUpdatedAt = "updated_at"
	OrderContent   = "content"
)

// UpdateFields carries the mutable note fields for a partial update.
// Nil fields are left unchanged.
type UpdateFields struct {
	VideoID *string
	Content *string
	Tags    *[]string
}

// NoteText is the searchable text of one note, the working set for
// suggestion and tag-catalog scans.
type NoteText struct {
	Content string
	Tags    []string
}

type NoteStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewNoteStore(db *sql.DB, dialect Dialect) *NoteStore {
	return &NoteStore{db: db, dialect: dialect}
}

const noteCols = `id, user_id, video_id, content, tags, created_at, updated_at`

func (s *NoteStore) scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	tagsDst := s.dialect.TagsScanDest()

	err := scanner.Scan(
		&n.ID, &n.UserID, &n.VideoID, &n.Content, tagsDst,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Tags = s.dialect.DecodeTags(tagsDst)
	return &n, nil
}

// whereClause builds the WHERE body for a filter. Each present criterion
// contributes one predicate group; groups combine with AND, so a match
// must satisfy every supplied criterion.
func (s *NoteStore) whereClause(f Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}

	if f.VideoID != "" {
		clauses = append(clauses, "video_id = ?")
		args = append(args, f.VideoID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		frag, fragArgs := s.dialect.TextPredicate(q)
		clauses = append(clauses, frag)
		args = append(args, fragArgs...)
	}
	if tags := normalizeTags(f.Tags); len(tags) > 0 {
		frag, fragArgs := s.dialect.TagPredicate(tags)
		clauses = append(clauses, frag)
		args = append(args, fragArgs...)
	}
	return strings.Join(clauses, " AND "), args
}

func (s *NoteStore) Create(userID, videoID, content string, tags []string) (*model.Note, error) {
	enc, err := s.dialect.EncodeTags(normalizeTags(tags))
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err = s.db.Exec(
		s.dialect.Rebind(`INSERT INTO notes (`+noteCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, userID, videoID, content, enc, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return s.GetByID(id, userID)
}

// GetByID returns the note only when it belongs to userID. A missing
// note and a foreign note are both nil, so callers cannot distinguish
// other users' notes from absent ones.
func (s *NoteStore) GetByID(id, userID string) (*model.Note, error) {
	row := s.db.QueryRow(
		s.dialect.Rebind(`SELECT `+noteCols+` FROM notes WHERE id = ? AND user_id = ?`),
		id, userID,
	)
	n, err := s.scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

func (s *NoteStore) Update(id, userID string, fields UpdateFields) (*model.Note, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if fields.VideoID != nil {
		sets = append(sets, "video_id = ?")
		args = append(args, *fields.VideoID)
	}
	if fields.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *fields.Content)
	}
	if fields.Tags != nil {
		enc, err := s.dialect.EncodeTags(normalizeTags(*fields.Tags))
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, enc)
	}
	args = append(args, id, userID)

	result, err := s.db.Exec(
		s.dialect.Rebind(`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetByID(id, userID)
}

// Delete removes the note when owned by userID and reports whether a
// row was removed.
func (s *NoteStore) Delete(id, userID string) (bool, error) {
	result, err := s.db.Exec(
		s.dialect.Rebind(`DELETE FROM notes WHERE id = ? AND user_id = ?`),
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindMany returns one page of notes matching the filter. orderField
// must be one of the Order* column constants; anything else falls back
// to created_at.
func (s *NoteStore) FindMany(f Filter, orderField string, desc bool, skip, take int) ([]model.Note, error) {
	where, args := s.whereClause(f)

	switch orderField {
	case OrderCreatedAt, OrderUpdatedAt, OrderContent:
	default:
		orderField = OrderCreatedAt
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	args = append(args, take, skip)
	rows, err := s.db.Query(
		s.dialect.Rebind(`SELECT `+noteCols+` FROM notes WHERE `+where+
			` ORDER BY `+orderField+` `+dir+` LIMIT ? OFFSET ?`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := s.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Count returns the number of notes matching the filter, built from the
// same predicate assembly FindMany uses.
func (s *NoteStore) Count(f Filter) (int, error) {
	where, args := s.whereClause(f)

	var count int
	err := s.db.QueryRow(
		s.dialect.Rebind(`SELECT COUNT(*) FROM notes WHERE `+where),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// ListTexts loads the content and tags of every note owned by userID,
// oldest first. Suggestion and tag scans work from this set without
// paging.
func (s *NoteStore) ListTexts(userID string) ([]NoteText, error) {
	rows, err := s.db.Query(
		s.dialect.Rebind(`SELECT content, tags FROM notes WHERE user_id = ? ORDER BY created_at ASC`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list note texts: %w", err)
	}
	defer rows.Close()

	var texts []NoteText
	for rows.Next() {
		var t NoteText
		tagsDst := s.dialect.TagsScanDest()
		if err := rows.Scan(&t.Content, tagsDst); err != nil {
			return nil, fmt.Errorf("scan note text: %w", err)
		}
		t.Tags = s.dialect.DecodeTags(tagsDst)
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
