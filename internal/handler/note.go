package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/notes"
	"github.com/mveldt/clipnotes/internal/websocket"
)

type NoteHandler struct {
	svc *notes.Service
	hub *websocket.Hub
}

func NewNoteHandler(svc *notes.Service, hub *websocket.Hub) *NoteHandler {
	return &NoteHandler{svc: svc, hub: hub}
}

func (h *NoteHandler) publish(userID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Publish(userID, msg)
	}
}

type noteRequest struct {
	VideoID string   `json:"video_id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type noteUpdateRequest struct {
	VideoID *string   `json:"video_id"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.svc.Create(userID, req.VideoID, req.Content, req.Tags)
	if err != nil {
		respondNoteError(w, err)
		return
	}

	h.publish(userID, websocket.NewMessage("note", "created", note.ID, map[string]any{
		"video_id": note.VideoID,
	}))

	respondData(w, http.StatusCreated, note)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	note, err := h.svc.Get(userID, r.PathValue("id"))
	if err != nil {
		respondNoteError(w, err)
		return
	}
	respondData(w, http.StatusOK, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req noteUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.svc.Update(userID, r.PathValue("id"), notes.UpdateParams{
		VideoID: req.VideoID,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondNoteError(w, err)
		return
	}

	h.publish(userID, websocket.NewMessage("note", "updated", note.ID, map[string]any{
		"video_id": note.VideoID,
	}))

	respondData(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	if err := h.svc.Delete(userID, id); err != nil {
		respondNoteError(w, err)
		return
	}

	h.publish(userID, websocket.NewMessage("note", "deleted", id, nil))

	respondMessage(w, "note deleted")
}

func (h *NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	q := r.URL.Query()

	page, err := intParam(q, "page")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Search(userID, notes.SearchParams{
		Query:          q.Get("query"),
		Tags:           splitTags(q.Get("tags")),
		VideoID:        q.Get("videoId"),
		Page:           page,
		Limit:          limit,
		OrderBy:        q.Get("orderBy"),
		OrderDirection: q.Get("orderDirection"),
	})
	if err != nil {
		respondNoteError(w, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

func (h *NoteHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	q := r.URL.Query()

	limit, err := intParam(q, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestions, err := h.svc.Suggest(userID, q.Get("query"), limit, q.Get("type"))
	if err != nil {
		respondNoteError(w, err)
		return
	}
	respondData(w, http.StatusOK, suggestions)
}

func (h *NoteHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	tags, err := h.svc.ListTags(userID)
	if err != nil {
		respondNoteError(w, err)
		return
	}
	respondData(w, http.StatusOK, tags)
}

// intParam reads an optional integer query parameter; absent reads as
// zero so the service applies its default.
func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", name)
	}
	return n, nil
}

// splitTags parses the comma-separated tags parameter, dropping empty
// entries.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
