package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/httputil"
	"github.com/anikkhan0099/moviehubbd/internal/metadata"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
	"github.com/anikkhan0099/moviehubbd/internal/telemetry"
	"github.com/anikkhan0099/moviehubbd/internal/upload"
	"github.com/anikkhan0099/moviehubbd/internal/users"
)

// ──────────────────── Helpers ────────────────────

var (
	errForbidden = errors.New("you can only modify content you added")
	errBadParam  = errors.New("invalid parameter")
)

func badParam(name string) error {
	return fmt.Errorf("%w: %s", errBadParam, name)
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	httputil.OK(w, statusCode, message, data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	httputil.WriteError(w, statusCode, message, nil)
}

// statusOf maps an error class to its HTTP status.
func statusOf(err error) int {
	switch {
	case models.IsValidation(err),
		errors.Is(err, httputil.ErrBadBody),
		errors.Is(err, errBadParam),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, repository.ErrInvalidCounter),
		errors.Is(err, upload.ErrUnsupported),
		errors.Is(err, upload.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidAdminKey):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden),
		errors.Is(err, users.ErrNotAdmin),
		errors.Is(err, users.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, models.ErrSeasonNotFound),
		errors.Is(err, models.ErrEpisodeNotFound),
		errors.Is(err, metadata.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, models.ErrSeasonExists),
		errors.Is(err, models.ErrEpisodeExists):
		return http.StatusConflict
	case errors.Is(err, metadata.ErrUpstream),
		errors.Is(err, upload.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, metadata.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondErr converts err into the error envelope. Server-side failures get
// a generic message; the raw text is attached outside production only.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := httputil.Response{Success: false, Message: err.Error()}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		body.Message = "validation failed"
		body.Errors = ve.Fields
	}
	var ce *repository.ConflictError
	if errors.As(err, &ce) {
		body.Message = ce.Key + " already exists"
	}
	if status >= 500 {
		s.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method, "path": r.URL.Path, "status": status,
		}).Error("request error")
		telemetry.CaptureError(err, r, map[string]string{"status": strconv.Itoa(status)})
		body.Message = http.StatusText(status)
		if !s.config.Production() {
			body.Error = err.Error()
		}
	}
	httputil.WriteJSON(w, status, body)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, badParam(name)
	}
	return id, nil
}

func pathInt(r *http.Request, name string, min int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.PathValue(name)))
	if err != nil || n < min {
		return 0, badParam(name)
	}
	return n, nil
}

// mustOwn rejects callers that are neither the owner nor an admin.
func mustOwn(r *http.Request, owner *uuid.UUID) error {
	if !principal(r).Can(owner) {
		return errForbidden
	}
	return nil
}
