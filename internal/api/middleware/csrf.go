package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/pkg/crypto"
)

const (
	CSRFCookie = "csrf_token"
	CSRFHeader = "X-CSRF-Token"

	csrfTokenExpiry = 24 * time.Hour
)

var (
	ErrCSRFMissing = apperr.Forbidden("CSRF token missing")
	ErrCSRFInvalid = apperr.Forbidden("invalid CSRF token")
)

// CSRF protects cookie-authenticated requests with a double-submit token:
// unsafe methods must echo the csrf_token cookie in the X-CSRF-Token
// header. Requests that carry an Authorization header, or no session
// cookie at all, are not subject to the check.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			ensureCSRFCookie(w, r)
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("Authorization") != "" || !hasSessionCookie(r) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CSRFCookie)
		provided := r.Header.Get(CSRFHeader)
		if err != nil || cookie.Value == "" || provided == "" {
			writeError(w, ErrCSRFMissing)
			return
		}
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(provided)) != 1 {
			writeError(w, ErrCSRFInvalid)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasSessionCookie(r *http.Request) bool {
	for _, name := range []string{SystemCookie, AttendantCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}

func ensureCSRFCookie(w http.ResponseWriter, r *http.Request) {
	if !hasSessionCookie(r) {
		return
	}
	if c, err := r.Cookie(CSRFCookie); err == nil && c.Value != "" {
		return
	}

	token, err := crypto.GenerateToken(32)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the frontend to echo in the header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}
