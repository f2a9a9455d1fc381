package handler

import (
	"log/slog"
	"net/http"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/platform"
)

// VideoHandler proxies the creator's own catalog from the video
// platform. Nothing here is persisted locally.
type VideoHandler struct {
	platform *platform.Client
	logger   *slog.Logger
}

func NewVideoHandler(pc *platform.Client, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{platform: pc, logger: logger}
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intParam(r.URL.Query(), "maxResults")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	page, err := h.platform.ListMyVideos(ctx, auth.PlatformToken(ctx), r.URL.Query().Get("pageToken"), maxResults)
	if err != nil {
		h.logger.Warn("list videos", "error", err)
		respondPlatformError(w, err)
		return
	}
	respondData(w, http.StatusOK, page)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.platform.GetVideo(ctx, auth.PlatformToken(ctx), r.PathValue("id"))
	if err != nil {
		h.logger.Warn("fetch video", "error", err, "video_id", r.PathValue("id"))
		respondPlatformError(w, err)
		return
	}
	respondData(w, http.StatusOK, video)
}
