package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// Can reports whether the caller may modify a document owned by owner.
func (p Principal) Can(owner *uuid.UUID) bool {
	if p.Role == models.RoleAdmin {
		return true
	}
	return owner != nil && *owner == p.UserID
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
