package notes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mveldt/clipnotes/internal/database"
	"github.com/mveldt/clipnotes/internal/model"
	"github.com/mveldt/clipnotes/internal/store"
)

func setupService(t *testing.T) (*Service, string) {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dialect, err := store.DialectFor("sqlite")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}

	users := store.NewUserStore(db, dialect)
	user, err := users.Create("plat-svc", "creator@example.com", "Creator")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewNoteStore(db, dialect), logger), user.ID
}

func mustCreate(t *testing.T, svc *Service, userID, videoID, content string, tags []string) *model.Note {
	t.Helper()
	note, err := svc.Create(userID, videoID, content, tags)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return note
}

func TestCreateValidatesInput(t *testing.T) {
	svc, userID := setupService(t)

	tests := []struct {
		name    string
		videoID string
		content string
		wantLen int
	}{
		{"empty content", "vid-1", "", 1},
		{"whitespace content", "vid-1", "   \n\t ", 1},
		{"missing video", "", "hello", 1},
		{"both missing", "  ", "", 2},
		{"content too long", "vid-1", strings.Repeat("a", MaxContentLength+1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(userID, tt.videoID, tt.content, nil)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() error = %v, want ValidationError", err)
			}
			if len(verr.Violations) != tt.wantLen {
				t.Errorf("violations = %v, want %d", verr.Violations, tt.wantLen)
			}
		})
	}
}

func TestCreateContentBoundary(t *testing.T) {
	svc, userID := setupService(t)

	note, err := svc.Create(userID, "vid-1", strings.Repeat("a", MaxContentLength), nil)
	if err != nil {
		t.Fatalf("Create() at limit: %v", err)
	}
	if got := len(note.Content); got != MaxContentLength {
		t.Errorf("content length = %d, want %d", got, MaxContentLength)
	}

	// The limit counts runes, not bytes.
	if _, err := svc.Create(userID, "vid-1", strings.Repeat("名", MaxContentLength), nil); err != nil {
		t.Errorf("Create() multibyte at limit: %v", err)
	}

	// Surrounding whitespace is trimmed before the length check.
	padded := "  " + strings.Repeat("a", MaxContentLength) + "  "
	if _, err := svc.Create(userID, "vid-1", padded, nil); err != nil {
		t.Errorf("Create() padded at limit: %v", err)
	}
}

func TestCreateTrimsFields(t *testing.T) {
	svc, userID := setupService(t)

	note := mustCreate(t, svc, userID, "  vid-1  ", "  timestamped idea  ", nil)
	if note.VideoID != "vid-1" {
		t.Errorf("video id = %q, want %q", note.VideoID, "vid-1")
	}
	if note.Content != "timestamped idea" {
		t.Errorf("content = %q, want %q", note.Content, "timestamped idea")
	}
	if note.ID == "" || note.UserID != userID {
		t.Errorf("note identity = (%q, %q)", note.ID, note.UserID)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, userID := setupService(t)

	if _, err := svc.Get(userID, "missing-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestOwnershipHiddenAsNotFound(t *testing.T) {
	svc, userID := setupService(t)

	note := mustCreate(t, svc, userID, "vid-1", "mine", nil)

	if _, err := svc.Get("someone-else", note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() as stranger = %v, want ErrNotFound", err)
	}
	content := "hijack"
	if _, err := svc.Update("someone-else", note.ID, UpdateParams{Content: &content}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() as stranger = %v, want ErrNotFound", err)
	}
	if err := svc.Delete("someone-else", note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() as stranger = %v, want ErrNotFound", err)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	svc, userID := setupService(t)

	note := mustCreate(t, svc, userID, "vid-1", "original", []string{"go", "sql"})

	content := "rewritten"
	updated, err := svc.Update(userID, note.ID, UpdateParams{Content: &content})
	if err != nil {
		t.Fatalf("Update() content: %v", err)
	}
	if updated.Content != "rewritten" {
		t.Errorf("content = %q, want %q", updated.Content, "rewritten")
	}
	if updated.VideoID != "vid-1" {
		t.Errorf("video id changed to %q", updated.VideoID)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "go" || updated.Tags[1] != "sql" {
		t.Errorf("tags changed to %v", updated.Tags)
	}

	tags := []string{"db"}
	updated, err = svc.Update(userID, note.ID, UpdateParams{Tags: &tags})
	if err != nil {
		t.Fatalf("Update() tags: %v", err)
	}
	if updated.Content != "rewritten" {
		t.Errorf("content changed to %q", updated.Content)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "db" {
		t.Errorf("tags = %v, want [db]", updated.Tags)
	}

	empty := []string{}
	updated, err = svc.Update(userID, note.ID, UpdateParams{Tags: &empty})
	if err != nil {
		t.Fatalf("Update() clear tags: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("tags = %v, want empty", updated.Tags)
	}
}

func TestUpdateValidatesInput(t *testing.T) {
	svc, userID := setupService(t)
	note := mustCreate(t, svc, userID, "vid-1", "original", nil)

	var verr *ValidationError

	blank := "   "
	if _, err := svc.Update(userID, note.ID, UpdateParams{Content: &blank}); !errors.As(err, &verr) {
		t.Errorf("Update() blank content error = %v, want ValidationError", err)
	}
	long := strings.Repeat("a", MaxContentLength+1)
	if _, err := svc.Update(userID, note.ID, UpdateParams{Content: &long}); !errors.As(err, &verr) {
		t.Errorf("Update() long content error = %v, want ValidationError", err)
	}
	emptyVideo := ""
	if _, err := svc.Update(userID, note.ID, UpdateParams{VideoID: &emptyVideo}); !errors.As(err, &verr) {
		t.Errorf("Update() empty video error = %v, want ValidationError", err)
	}

	got, err := svc.Get(userID, note.ID)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if got.Content != "original" {
		t.Errorf("content = %q after rejected updates, want %q", got.Content, "original")
	}
}

func TestDeleteRemovesNote(t *testing.T) {
	svc, userID := setupService(t)
	note := mustCreate(t, svc, userID, "vid-1", "ephemeral", nil)

	if err := svc.Delete(userID, note.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err := svc.Get(userID, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(userID, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice = %v, want ErrNotFound", err)
	}
}

func TestSearchDefaults(t *testing.T) {
	svc, userID := setupService(t)

	res, err := svc.Search(userID, SearchParams{})
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if res.Pagination.Page != 1 || res.Pagination.Limit != DefaultPageSize {
		t.Errorf("pagination = %+v, want page 1 limit %d", res.Pagination, DefaultPageSize)
	}
	if res.Notes == nil {
		t.Error("notes should be an empty slice, not nil")
	}
	if res.Pagination.TotalPages != 0 || res.Pagination.HasNext || res.Pagination.HasPrev {
		t.Errorf("empty result pagination = %+v", res.Pagination)
	}
}

func TestSearchClampsPaging(t *testing.T) {
	svc, userID := setupService(t)

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"zero page", 0, 0, 1, DefaultPageSize},
		{"negative page", -3, 0, 1, DefaultPageSize},
		{"negative limit", 1, -5, 1, 1},
		{"oversized limit", 1, 500, 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Search(userID, SearchParams{Page: tt.page, Limit: tt.limit})
			if err != nil {
				t.Fatalf("Search(): %v", err)
			}
			if res.Pagination.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", res.Pagination.Page, tt.wantPage)
			}
			if res.Pagination.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", res.Pagination.Limit, tt.wantLimit)
			}
		})
	}
}

func TestSearchValidatesOrdering(t *testing.T) {
	svc, userID := setupService(t)

	var verr *ValidationError
	if _, err := svc.Search(userID, SearchParams{OrderBy: "popularity"}); !errors.As(err, &verr) {
		t.Fatalf("Search() bad orderBy error = %v, want ValidationError", err)
	}
	if _, err := svc.Search(userID, SearchParams{OrderDirection: "sideways"}); !errors.As(err, &verr) {
		t.Fatalf("Search() bad orderDirection error = %v, want ValidationError", err)
	}
	if _, err := svc.Search(userID, SearchParams{OrderBy: "popularity", OrderDirection: "sideways"}); !errors.As(err, &verr) {
		t.Fatalf("Search() error = %v, want ValidationError", err)
	} else if len(verr.Violations) != 2 {
		t.Errorf("violations = %v, want both reported", verr.Violations)
	}
}

func TestSearchPaginationFlags(t *testing.T) {
	svc, userID := setupService(t)

	for i := 0; i < 5; i++ {
		mustCreate(t, svc, userID, "vid-1", fmt.Sprintf("note %d", i), nil)
		time.Sleep(10 * time.Millisecond)
	}

	tests := []struct {
		page      int
		wantCount int
		wantNext  bool
		wantPrev  bool
	}{
		{1, 2, true, false},
		{2, 2, true, true},
		{3, 1, false, true},
		{4, 0, false, true},
	}
	for _, tt := range tests {
		res, err := svc.Search(userID, SearchParams{Page: tt.page, Limit: 2})
		if err != nil {
			t.Fatalf("Search() page %d: %v", tt.page, err)
		}
		if len(res.Notes) != tt.wantCount {
			t.Errorf("page %d: %d notes, want %d", tt.page, len(res.Notes), tt.wantCount)
		}
		p := res.Pagination
		if p.TotalCount != 5 || p.TotalPages != 3 {
			t.Errorf("page %d: totals = (%d, %d), want (5, 3)", tt.page, p.TotalCount, p.TotalPages)
		}
		if p.HasNext != tt.wantNext || p.HasPrev != tt.wantPrev {
			t.Errorf("page %d: hasNext=%v hasPrev=%v, want %v %v", tt.page, p.HasNext, p.HasPrev, tt.wantNext, tt.wantPrev)
		}
	}
}

func TestSearchRelevanceOrder(t *testing.T) {
	svc, userID := setupService(t)

	first := mustCreate(t, svc, userID, "vid-1", "first note", nil)
	time.Sleep(10 * time.Millisecond)
	mustCreate(t, svc, userID, "vid-1", "second note", nil)
	time.Sleep(10 * time.Millisecond)

	content := "first note touched"
	if _, err := svc.Update(userID, first.ID, UpdateParams{Content: &content}); err != nil {
		t.Fatalf("Update(): %v", err)
	}

	// relevance surfaces recently-updated notes whatever direction the
	// caller asks for.
	for _, dir := range []string{"", "asc", "desc"} {
		res, err := svc.Search(userID, SearchParams{OrderBy: "relevance", OrderDirection: dir})
		if err != nil {
			t.Fatalf("Search() dir %q: %v", dir, err)
		}
		if len(res.Notes) != 2 {
			t.Fatalf("dir %q: %d notes, want 2", dir, len(res.Notes))
		}
		if res.Notes[0].ID != first.ID {
			t.Errorf("dir %q: first result = %q, want the updated note", dir, res.Notes[0].ID)
		}
	}
}

func TestSearchThreadsFilters(t *testing.T) {
	svc, userID := setupService(t)

	mustCreate(t, svc, userID, "vid-1", "react hooks tutorial", []string{"js"})
	mustCreate(t, svc, userID, "vid-2", "cooking pasta", []string{"food"})

	res, err := svc.Search(userID, SearchParams{Query: "react", Tags: []string{"python"}})
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if res.Pagination.TotalCount != 0 {
		t.Errorf("query plus wrong tag matched %d notes, want 0", res.Pagination.TotalCount)
	}

	res, err = svc.Search(userID, SearchParams{Query: "react", Tags: []string{"js"}, VideoID: "vid-1"})
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if res.Pagination.TotalCount != 1 {
		t.Errorf("query plus tag plus video matched %d notes, want 1", res.Pagination.TotalCount)
	}
}
