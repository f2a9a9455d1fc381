package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mveldt/clipnotes/internal/backup"
	"github.com/mveldt/clipnotes/internal/model"
	"github.com/mveldt/clipnotes/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	store   *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, store: bs, logger: logger}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.store.List(50)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	respondData(w, http.StatusOK, backups)
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.manager.Status())
}

// Run triggers a backup and blocks until the snapshot is uploaded.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.manager.Status().State == backup.StateDisabled {
		respondError(w, http.StatusConflict, "backups are not configured")
		return
	}

	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		respondError(w, http.StatusInternalServerError, "backup failed")
		return
	}

	record, err := h.store.GetByID(id)
	if err != nil || record == nil {
		h.logger.Error("fetch backup record", "error", err, "backup_id", id)
		respondError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	respondData(w, http.StatusCreated, record)
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("fetch backup record", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch backup")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "backup not found")
		return
	}

	body, size, err := h.manager.Download(r.Context(), record.ID)
	if err != nil {
		h.logger.Error("download backup", "error", err, "backup_id", record.ID)
		respondError(w, http.StatusInternalServerError, "failed to download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	io.Copy(w, body)
}

// Restore replaces the live database with the chosen backup. On success
// the process exits so the supervisor restarts it with the restored file;
// no response is written in that case.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("fetch backup record", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch backup")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "backup not found")
		return
	}

	if err := h.manager.Restore(r.Context(), record.ID); err != nil {
		h.logger.Error("restore backup", "error", err, "backup_id", record.ID)
		respondError(w, http.StatusInternalServerError, "restore failed")
	}
}
