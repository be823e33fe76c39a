// Package users implements registration, login, token refresh and the
// per-account watchlist and preferences.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

const bootstrapNameAttempts = 20

var (
	ErrAccountDisabled = errors.New("account is disabled")
	ErrNotAdmin        = errors.New("admin role required")
)

// ContentChecker confirms a watchlist target exists.
type ContentChecker interface {
	Exists(ctx context.Context, ref models.ContentRef) error
}

type Service struct {
	store    repository.UserStore
	issuer   *auth.Issuer
	content  ContentChecker
	adminKey string
	log      *logrus.Entry
	now      func() time.Time
}

func NewService(store repository.UserStore, issuer *auth.Issuer, content ContentChecker, adminKey string, log *logrus.Entry) *Service {
	return &Service{store: store, issuer: issuer, content: content, adminKey: adminKey, log: log, now: time.Now}
}

// Session is what every login path returns.
type Session struct {
	User *models.User `json:"user"`
	auth.Pair
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) Register(ctx context.Context, in Registration) (*Session, error) {
	u := &models.User{
		Username:    strings.TrimSpace(in.Username),
		Email:       models.NormalizeEmail(in.Email),
		Role:        models.RoleUser,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
	}
	ve := &models.ValidationError{}
	if err := u.Validate(); err != nil {
		var uve *models.ValidationError
		if errors.As(err, &uve) {
			ve.Fields = append(ve.Fields, uve.Fields...)
		}
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		ve.Add("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", u.ID).Info("user registered")
	return s.start(ctx, u)
}

// start issues a token pair and records the refresh token hash.
func (s *Service) start(ctx context.Context, u *models.User) (*Session, error) {
	pair, err := s.issuer.Issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRefreshToken(ctx, u.ID, auth.HashToken(pair.RefreshToken)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{User: u, Pair: pair}, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, auth.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return s.start(ctx, u)
}

// AdminLogin needs the shared admin key on top of the credentials of an
// existing admin account.
func (s *Service) AdminLogin(ctx context.Context, email, password, adminKey string) (*Session, error) {
	if err := auth.CheckAdminKey(s.adminKey, adminKey); err != nil {
		s.log.Warn("admin login with invalid admin key")
		return nil, err
	}
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}
	now := s.now().UTC()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return s.start(ctx, u)
}

// Refresh rotates the token pair. Only the most recently issued refresh token
// is accepted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	want := auth.HashToken(refreshToken)
	if u.RefreshTokenHash == "" || subtle.ConstantTimeCompare([]byte(u.RefreshTokenHash), []byte(want)) != 1 {
		return nil, auth.ErrInvalidToken
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.start(ctx, u)
}

func (s *Service) Logout(ctx context.Context, id uuid.UUID) error {
	return s.store.SetRefreshToken(ctx, id, "")
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return auth.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(next); err != nil {
		ve := &models.ValidationError{}
		ve.Add("newPassword", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
		return ve
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.SetPassword(ctx, id, hash)
}

func (s *Service) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.Preferences) (*models.User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Preferences = prefs
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ──────────────────── Watchlist ────────────────────

func (s *Service) Watchlist(ctx context.Context, id uuid.UUID) ([]models.WatchlistEntry, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Watchlist, nil
}

func (s *Service) AddToWatchlist(ctx context.Context, id uuid.UUID, ref models.ContentRef) (models.WatchlistEntry, error) {
	if err := s.content.Exists(ctx, ref); err != nil {
		return models.WatchlistEntry{}, err
	}
	entry := models.WatchlistEntry{ContentRef: ref, AddedAt: s.now().UTC()}
	if err := s.store.AddToWatchlist(ctx, id, entry); err != nil {
		return models.WatchlistEntry{}, err
	}
	return entry, nil
}

func (s *Service) RemoveFromWatchlist(ctx context.Context, id uuid.UUID, ref models.ContentRef) error {
	return s.store.RemoveFromWatchlist(ctx, id, ref)
}

// ──────────────────── Admin ────────────────────

func (s *Service) List(ctx context.Context, page query.Page) ([]*models.User, int, error) {
	return s.store.List(ctx, page)
}

func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		ve := &models.ValidationError{}
		ve.Add("role", "must be one of: user, moderator, admin")
		return nil, ve
	}
	if err := s.store.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Bootstrap creates the first admin account when none exists yet. It is a
// no-op when email is empty or an admin is already present.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.store.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Email:        models.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		Preferences:  models.DefaultPreferences(),
	}
	// "admin" may already belong to a registered user.
	for i := 1; ; i++ {
		u.ID = uuid.Nil
		u.Username = "admin"
		if i > 1 {
			u.Username = fmt.Sprintf("admin%d", i)
		}
		if err := u.Validate(); err != nil {
			return err
		}
		err := s.store.Create(ctx, u)
		if err == nil {
			break
		}
		var conflict *repository.ConflictError
		if !errors.As(err, &conflict) || conflict.Key != "username" || i >= bootstrapNameAttempts {
			return fmt.Errorf("create bootstrap admin: %w", err)
		}
	}
	s.log.WithFields(logrus.Fields{"email": u.Email, "username": u.Username}).Info("bootstrap admin created")
	return nil
}
