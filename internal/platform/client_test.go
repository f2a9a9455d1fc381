package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want /me", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(Identity{
			ID:          "chan-42",
			Email:       "creator@example.com",
			DisplayName: "Creator",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	identity, err := c.TokenInfo(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("TokenInfo(): %v", err)
	}
	if identity.ID != "chan-42" || identity.Email != "creator@example.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestListMyVideos(t *testing.T) {
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("path = %q, want /videos", r.URL.Path)
		}
		if got := r.URL.Query().Get("pageToken"); got != "tok-page-2" {
			t.Errorf("pageToken = %q, want tok-page-2", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "25" {
			t.Errorf("maxResults = %q, want 25", got)
		}
		json.NewEncoder(w).Encode(VideoPage{
			Videos: []Video{{
				ID:          "vid-1",
				Title:       "Launch day",
				PublishedAt: published,
				Stats:       VideoStats{Views: 1200, Likes: 80, Comments: 14},
			}},
			NextPageToken: "tok-page-3",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	page, err := c.ListMyVideos(context.Background(), "tok-1", "tok-page-2", 25)
	if err != nil {
		t.Fatalf("ListMyVideos(): %v", err)
	}
	if len(page.Videos) != 1 || page.Videos[0].ID != "vid-1" {
		t.Errorf("videos = %+v", page.Videos)
	}
	if !page.Videos[0].PublishedAt.Equal(published) {
		t.Errorf("published at = %v, want %v", page.Videos[0].PublishedAt, published)
	}
	if page.NextPageToken != "tok-page-3" {
		t.Errorf("next page token = %q", page.NextPageToken)
	}
}

func TestListMyVideosEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VideoPage{})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	page, err := c.ListMyVideos(context.Background(), "tok-1", "", 0)
	if err != nil {
		t.Fatalf("ListMyVideos(): %v", err)
	}
	if page.Videos == nil {
		t.Error("videos should be an empty slice, not nil")
	}
}

func TestStatusTranslation(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewClient(server.URL)
		_, err := c.GetVideo(context.Background(), "tok-1", "vid-1")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
		server.Close()
	}
}

func TestQuotaRetriesThenFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.GetVideo(context.Background(), "tok-1", "vid-1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}
	if calls != maxRetries+1 {
		t.Errorf("platform saw %d calls, want %d", calls, maxRetries+1)
	}
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Video{ID: "vid-1", Title: "Recovered"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	video, err := c.GetVideo(context.Background(), "tok-1", "vid-1")
	if err != nil {
		t.Fatalf("GetVideo(): %v", err)
	}
	if video.Title != "Recovered" {
		t.Errorf("title = %q", video.Title)
	}
	if calls != 3 {
		t.Errorf("platform saw %d calls, want 3", calls)
	}
}

func TestBadRequestNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid page token"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.ListMyVideos(context.Background(), "tok-1", "garbage", 0)
	if err == nil || !strings.Contains(err.Error(), "invalid page token") {
		t.Errorf("error = %v, want the envelope message", err)
	}
	if calls != 1 {
		t.Errorf("platform saw %d calls, want 1", calls)
	}
}

func TestOwnsVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/vid-mine") {
			json.NewEncoder(w).Encode(Video{ID: "vid-mine"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL)

	owned, err := c.OwnsVideo(context.Background(), "tok-1", "vid-mine")
	if err != nil || !owned {
		t.Errorf("OwnsVideo(vid-mine) = (%v, %v), want (true, nil)", owned, err)
	}
	owned, err = c.OwnsVideo(context.Background(), "tok-1", "vid-other")
	if err != nil || owned {
		t.Errorf("OwnsVideo(vid-other) = (%v, %v), want (false, nil)", owned, err)
	}
}

func TestPostComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/videos/vid-1/comments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Text     string `json:"text"`
			ParentID string `json:"parent_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Text != "thanks for watching" || body.ParentID != "cmt-9" {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(Comment{
			ID:       "cmt-10",
			VideoID:  "vid-1",
			ParentID: "cmt-9",
			Text:     body.Text,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	comment, err := c.PostComment(context.Background(), "tok-1", "vid-1", "thanks for watching", "cmt-9")
	if err != nil {
		t.Fatalf("PostComment(): %v", err)
	}
	if comment.ID != "cmt-10" || comment.ParentID != "cmt-9" {
		t.Errorf("comment = %+v", comment)
	}
}

func TestDeleteComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" || r.URL.Path != "/comments/cmt-10" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.DeleteComment(context.Background(), "tok-1", "cmt-10"); err != nil {
		t.Errorf("DeleteComment(): %v", err)
	}
}
