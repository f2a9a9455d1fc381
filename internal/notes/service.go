// Package notes implements note CRUD, search, autocomplete suggestions,
// and the tag catalog for one user's video notes.
package notes

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mveldt/clipnotes/internal/model"
	"github.com/mveldt/clipnotes/internal/store"
)

const (
	// MaxContentLength is the longest accepted note content, counted in
	// Unicode code points after trimming.
	MaxContentLength = 10000

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// orderColumns maps the public orderBy values onto repository columns.
// relevance is absent: it is proxied to updated_at descending.
var orderColumns = map[string]string{
	"createdAt": store.OrderCreatedAt,
	"updatedAt": store.OrderUpdatedAt,
	"content":   store.OrderContent,
}

type SearchParams struct {
	Query          string
	Tags           []string
	VideoID        string
	Page           int
	Limit          int
	OrderBy        string
	OrderDirection string
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type SearchResult struct {
	Notes      []model.Note `json:"notes"`
	Pagination Pagination   `json:"pagination"`
}

// UpdateParams carries a partial note update; nil fields stay untouched.
type UpdateParams struct {
	VideoID *string
	Content *string
	Tags    *[]string
}

type Service struct {
	store  *store.NoteStore
	logger *slog.Logger
}

func NewService(store *store.NoteStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// validateContent trims the content and checks the length bounds,
// returning the trimmed value that gets stored.
func validateContent(content string) (string, []string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", []string{"content must not be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return "", []string{fmt.Sprintf("content must be at most %d characters", MaxContentLength)}
	}
	return trimmed, nil
}

func (s *Service) Create(userID, videoID, content string, tags []string) (*model.Note, error) {
	var violations []string

	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		violations = append(violations, "videoId is required")
	}
	trimmed, contentViolations := validateContent(content)
	violations = append(violations, contentViolations...)
	if len(violations) > 0 {
		return nil, validationError(violations...)
	}

	note, err := s.store.Create(userID, videoID, trimmed, tags)
	if err != nil {
		s.logger.Error("create note failed", "error", err)
		return nil, errors.New("failed to create note")
	}
	return note, nil
}

func (s *Service) Get(userID, id string) (*model.Note, error) {
	note, err := s.store.GetByID(id, userID)
	if err != nil {
		s.logger.Error("get note failed", "error", err)
		return nil, errors.New("failed to fetch note")
	}
	if note == nil {
		return nil, ErrNotFound
	}
	return note, nil
}

func (s *Service) Update(userID, id string, p UpdateParams) (*model.Note, error) {
	var violations []string
	fields := store.UpdateFields{Tags: p.Tags}

	if p.VideoID != nil {
		v := strings.TrimSpace(*p.VideoID)
		if v == "" {
			violations = append(violations, "videoId must not be empty")
		}
		fields.VideoID = &v
	}
	if p.Content != nil {
		trimmed, contentViolations := validateContent(*p.Content)
		violations = append(violations, contentViolations...)
		fields.Content = &trimmed
	}
	if len(violations) > 0 {
		return nil, validationError(violations...)
	}

	note, err := s.store.Update(id, userID, fields)
	if err != nil {
		s.logger.Error("update note failed", "error", err)
		return nil, errors.New("failed to update note")
	}
	if note == nil {
		return nil, ErrNotFound
	}
	return note, nil
}

func (s *Service) Delete(userID, id string) error {
	deleted, err := s.store.Delete(id, userID)
	if err != nil {
		s.logger.Error("delete note failed", "error", err)
		return errors.New("failed to delete note")
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Search runs a filtered, ordered, paginated read over the caller's
// notes. A page fetch and a count run against the same filter; the two
// are not transactional, so the metadata can drift slightly under
// concurrent writes.
func (s *Service) Search(userID string, p SearchParams) (*SearchResult, error) {
	var violations []string

	orderBy := p.OrderBy
	if orderBy == "" {
		orderBy = "createdAt"
	}
	if _, ok := orderColumns[orderBy]; !ok && orderBy != "relevance" {
		violations = append(violations, "orderBy must be one of createdAt, updatedAt, content, relevance")
	}

	direction := p.OrderDirection
	if direction == "" {
		direction = "desc"
	}
	if direction != "asc" && direction != "desc" {
		violations = append(violations, "orderDirection must be asc or desc")
	}

	if len(violations) > 0 {
		return nil, validationError(violations...)
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 1:
		limit = 1
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	// relevance has no backing column; recently-updated notes stand in
	// for relevant ones.
	column := orderColumns[orderBy]
	desc := direction == "desc"
	if orderBy == "relevance" {
		column = store.OrderUpdatedAt
		desc = true
	}

	filter := store.Filter{
		UserID:  userID,
		VideoID: strings.TrimSpace(p.VideoID),
		Query:   p.Query,
		Tags:    p.Tags,
	}
	skip := (page - 1) * limit

	found, err := s.store.FindMany(filter, column, desc, skip, limit)
	if err != nil {
		s.logger.Error("search notes failed", "error", err)
		return nil, errors.New("failed to search notes")
	}
	total, err := s.store.Count(filter)
	if err != nil {
		s.logger.Error("count notes failed", "error", err)
		return nil, errors.New("failed to search notes")
	}

	if found == nil {
		found = []model.Note{}
	}
	totalPages := (total + limit - 1) / limit

	return &SearchResult{
		Notes: found,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalCount: total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}
