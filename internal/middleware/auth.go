package middleware

import (
	"net/http"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/secrets"
	"github.com/mveldt/clipnotes/internal/store"
)

// SessionCookieName is shared with the session handler, which sets and
// clears the cookie.
const SessionCookieName = "clipnotes_session"

// RequireAuth validates the session cookie, loads the user, and
// decrypts the platform token into the request context. Failures
// answer 401 as JSON; the API never redirects.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, vault *secrets.Vault) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(sess.UserID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			token, err := vault.Open(user.TokenCipher)
			if err != nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:        user.ID,
				SessionToken:  sess.Token,
				PlatformToken: token,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"authentication required"}`))
}
