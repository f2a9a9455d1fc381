package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/platform"
)

type CommentHandler struct {
	platform *platform.Client
	logger   *slog.Logger
}

func NewCommentHandler(pc *platform.Client, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{platform: pc, logger: logger}
}

type commentRequest struct {
	Text     string `json:"text"`
	ParentID string `json:"parent_id"`
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.platform.ListComments(ctx, auth.PlatformToken(ctx), r.PathValue("id"), r.URL.Query().Get("pageToken"))
	if err != nil {
		h.logger.Warn("list comments", "error", err, "video_id", r.PathValue("id"))
		respondPlatformError(w, err)
		return
	}
	respondData(w, http.StatusOK, page)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	token := auth.PlatformToken(ctx)
	videoID := r.PathValue("id")

	// Comments post only to the creator's own uploads. A foreign video
	// reads as not found, the same answer the platform gives.
	owned, err := h.platform.OwnsVideo(ctx, token, videoID)
	if err != nil {
		h.logger.Warn("ownership check", "error", err, "video_id", videoID)
		respondPlatformError(w, err)
		return
	}
	if !owned {
		respondError(w, http.StatusNotFound, "not found on platform")
		return
	}

	comment, err := h.platform.PostComment(ctx, token, videoID, req.Text, req.ParentID)
	if err != nil {
		h.logger.Warn("post comment", "error", err, "video_id", videoID)
		respondPlatformError(w, err)
		return
	}
	respondData(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.platform.DeleteComment(ctx, auth.PlatformToken(ctx), r.PathValue("id")); err != nil {
		h.logger.Warn("delete comment", "error", err, "comment_id", r.PathValue("id"))
		respondPlatformError(w, err)
		return
	}
	respondMessage(w, "comment deleted")
}
