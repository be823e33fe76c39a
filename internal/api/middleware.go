package api

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/metrics"
	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// ──────────────────── Middleware ────────────────────

// authMiddleware requires a valid access token whose role is at least
// requiredRole.
func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization")
			return
		}
		claims, err := s.issuer.Parse(token, auth.AccessToken)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if !claims.Role.AtLeast(requiredRole) {
			s.respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		p := auth.Principal{UserID: claims.UserID, Role: claims.Role}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}
}

// optionalAuth attaches the principal when a valid token is present and
// otherwise serves the request anonymously.
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := auth.BearerToken(r); token != "" {
			if claims, err := s.issuer.Parse(token, auth.AccessToken); err == nil {
				p := auth.Principal{UserID: claims.UserID, Role: claims.Role}
				r = r.WithContext(auth.WithPrincipal(r.Context(), p))
			}
		}
		next(w, r)
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func isAdmin(r *http.Request) bool {
	p, ok := auth.FromContext(r.Context())
	return ok && p.Role == models.RoleAdmin
}

// rateLimited applies the per-IP token bucket.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(s.proxies.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &metrics.StatusWriter{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)
		entry := s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.Status,
			"duration": time.Since(start).String(),
			"ip":       s.proxies.clientIP(r),
		})
		switch {
		case rw.Status >= 500:
			entry.Error("request failed")
		case rw.Status >= 400:
			entry.Info("request rejected")
		default:
			entry.Debug("request")
		}
	})
}

// securityHeadersMiddleware adds standard security headers to all responses.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		w.Header().Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS preflight and response headers globally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
