package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/cors"

	"github.com/mveldt/clipnotes/internal/backup"
	"github.com/mveldt/clipnotes/internal/handler"
	"github.com/mveldt/clipnotes/internal/middleware"
	"github.com/mveldt/clipnotes/internal/notes"
	"github.com/mveldt/clipnotes/internal/platform"
	"github.com/mveldt/clipnotes/internal/secrets"
	"github.com/mveldt/clipnotes/internal/store"
	ws "github.com/mveldt/clipnotes/internal/websocket"
)

const (
	// loginRateLimit bounds session creation attempts per IP per minute.
	loginRateLimit = 10
	// suggestionRateLimit bounds typeahead requests per user per minute.
	suggestionRateLimit = 120
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	noteH         *handler.NoteHandler
	sessionH      *handler.SessionHandler
	videoH        *handler.VideoHandler
	commentH      *handler.CommentHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	vault         *secrets.Vault
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	corsOrigins   []string
	logger        *slog.Logger
}

func New(
	db *sql.DB,
	dialect store.Dialect,
	platformClient *platform.Client,
	vault *secrets.Vault,
	sessionTTL time.Duration,
	backupCfg backup.Config,
	corsOrigins []string,
	logger *slog.Logger,
) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	noteStore := store.NewNoteStore(db, dialect)
	userStore := store.NewUserStore(db, dialect)
	sessionStore := store.NewSessionStore(db, dialect)
	backupStore := store.NewBackupStore(db, dialect)

	noteSvc := notes.NewService(noteStore, logger.With("component", "notes"))

	backupMgr := backup.NewManager(backupCfg, db, backupStore, logger.With("component", "backup"), func(st backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(st.State),
			Extra: map[string]any{
				"in_progress": st.InProgress,
				"error":       st.Error,
			},
		})
	})

	return &Server{
		db:            db,
		hub:           hub,
		noteH:         handler.NewNoteHandler(noteSvc, hub),
		sessionH:      handler.NewSessionHandler(userStore, sessionStore, platformClient, vault, sessionTTL, logger.With("component", "session")),
		videoH:        handler.NewVideoHandler(platformClient, logger.With("component", "video")),
		commentH:      handler.NewCommentHandler(platformClient, logger.With("component", "comment")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		vault:         vault,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		corsOrigins:   corsOrigins,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/session", s.rateLimitedHandler(s.sessionH.Create))
	outerMux.HandleFunc("GET /api/health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.vault)
	outerMux.Handle("/", authMiddleware(protectedMux))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(outerMux)

	return middleware.RequestLogger(s.logger.With("component", "http"))(corsHandler)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) suggestionLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.UserKey, suggestionRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session routes that require authentication
	mux.HandleFunc("DELETE /api/session", s.sessionH.Delete)
	mux.HandleFunc("GET /api/me", s.sessionH.Me)

	// Notes API routes; the fixed paths must not be shadowed by {id}
	mux.HandleFunc("POST /api/notes", s.noteH.Create)
	mux.HandleFunc("GET /api/notes/search", s.noteH.Search)
	mux.HandleFunc("GET /api/notes/suggestions", s.suggestionLimitedHandler(s.noteH.Suggest))
	mux.HandleFunc("GET /api/notes/tags", s.noteH.ListTags)
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.HandleFunc("PATCH /api/notes/{id}", s.noteH.Update)
	mux.HandleFunc("DELETE /api/notes/{id}", s.noteH.Delete)

	// Platform passthrough routes
	mux.HandleFunc("GET /api/videos", s.videoH.List)
	mux.HandleFunc("GET /api/videos/{id}", s.videoH.Get)
	mux.HandleFunc("GET /api/videos/{id}/comments", s.commentH.List)
	mux.HandleFunc("POST /api/videos/{id}/comments", s.commentH.Create)
	mux.HandleFunc("DELETE /api/comments/{id}", s.commentH.Delete)

	// Backup API routes
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)

	// WebSocket change feed
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub, s.wsOriginPatterns(), s.logger.With("component", "websocket")))
}

// wsOriginPatterns converts configured CORS origins into the host
// patterns the websocket accept check expects.
func (s *Server) wsOriginPatterns() []string {
	var patterns []string
	for _, origin := range s.corsOrigins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
