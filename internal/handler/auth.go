package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/middleware"
	"github.com/mveldt/clipnotes/internal/platform"
	"github.com/mveldt/clipnotes/internal/secrets"
	"github.com/mveldt/clipnotes/internal/store"
)

type SessionHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	platform *platform.Client
	vault    *secrets.Vault
	ttl      time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	pc *platform.Client,
	vault *secrets.Vault,
	ttl time.Duration,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		users:    us,
		sessions: ss,
		platform: pc,
		vault:    vault,
		ttl:      ttl,
		logger:   logger,
	}
}

type sessionRequest struct {
	AccessToken string `json:"access_token"`
}

// Create exchanges a platform access token for a session cookie. The
// token is verified against the platform, the matching local account is
// created or refreshed, and the token itself is stored only encrypted.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		respondError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	ident, err := h.platform.TokenInfo(r.Context(), token)
	if err != nil {
		h.logger.Warn("token verification failed", "error", err)
		respondPlatformError(w, err)
		return
	}

	user, err := h.users.GetByPlatformID(ident.ID)
	if err != nil {
		h.logger.Error("session user lookup", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to establish session")
		return
	}
	if user == nil {
		user, err = h.users.Create(ident.ID, ident.Email, ident.DisplayName)
		if err != nil {
			h.logger.Error("create user", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to establish session")
			return
		}
	} else if user.Email != ident.Email || user.DisplayName != ident.DisplayName {
		user, err = h.users.UpdateProfile(user.ID, ident.Email, ident.DisplayName)
		if err != nil {
			h.logger.Error("refresh profile", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to establish session")
			return
		}
	}

	cipher, err := h.vault.Seal(token)
	if err != nil {
		h.logger.Error("seal platform token", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to establish session")
		return
	}
	if err := h.users.SetTokenCipher(user.ID, cipher); err != nil {
		h.logger.Error("store token cipher", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to establish session")
		return
	}

	sess, err := h.sessions.Create(user.ID, h.ttl)
	if err != nil {
		h.logger.Error("create session", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to establish session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	respondData(w, http.StatusCreated, user)
}

// Delete ends the current session and clears the cookie.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteByToken(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	respondMessage(w, "session ended")
}

// Me returns the account behind the current session.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("fetch profile", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondData(w, http.StatusOK, user)
}
