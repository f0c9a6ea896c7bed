// Package service provides the document store's business logic, delegating
// persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new account; a taken email is ErrEmailInUse.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail returns ErrUserNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	GetPreferences(ctx context.Context, id string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, id string, p models.Preferences) error
}

// SignUpRequest is the body of a sign-up call.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

// SignInRequest is the body of a sign-in call.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type preferencesRequest struct {
	Theme       string `json:"theme" validate:"oneof=light dark"`
	Language    string `json:"language" validate:"oneof=ja en"`
	DefaultView string `json:"defaultView" validate:"oneof=grid list"`
}

// AuthService implements account and session operations.
type AuthService struct {
	repo   AuthRepository
	tokens *TokenService
	mailer Mailer
	log    *zap.Logger
	cost   int
	now    func() time.Time
}

// NewAuthService constructs an AuthService. A nil mailer logs reset requests instead.
func NewAuthService(repo AuthRepository, tokens *TokenService, mailer Mailer, log *zap.Logger) *AuthService {
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		log:    log,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

func (s *AuthService) identity(u *models.User) *models.Identity {
	tok, exp := s.tokens.Issue(u.ID, u.Email)
	return &models.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Token:       tok,
		ExpiresAt:   exp,
	}
}

// SignUp creates an account with default preferences and signs it in.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*models.Identity, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, domainerrors.Internal("hash password", err)
	}

	now := s.now().UTC()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Preferences:  models.DefaultPreferences(),
		CreatedAt:    now,
		LastLoginAt:  now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", u.ID))
	return s.identity(&u), nil
}

// SignIn checks the password and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*models.Identity, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		if strings.TrimSpace(req.Password) == "" && req.Email != "" {
			return nil, domainerrors.ErrWrongPassword
		}
		return nil, formatValidationError(err)
	}

	u, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domainerrors.ErrWrongPassword
		}
		return nil, domainerrors.Internal("compare password", err)
	}

	if err := s.repo.TouchLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.log.Warn("failed to stamp last login", zap.String("user_id", u.ID), zap.Error(err))
	}
	return s.identity(u), nil
}

// SignInWithProvider is not available on this server.
func (s *AuthService) SignInWithProvider(_ context.Context, provider string) (*models.Identity, error) {
	return nil, domainerrors.Newf(domainerrors.CodeOperationNotAllowed, "sign-in with %s is not enabled", provider)
}

// SignOut revokes the session token described by c.
func (s *AuthService) SignOut(_ context.Context, c *Claims) {
	s.tokens.Revoke(c)
}

// ResetPassword mails a reset link to a registered address.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	req := emailRequest{Email: strings.TrimSpace(strings.ToLower(email))}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, req.Email)
}

// VerifyToken returns the claims of a valid session token.
func (s *AuthService) VerifyToken(tok string) (*Claims, error) {
	return s.tokens.Verify(tok)
}

// Me returns the account behind userID. The token field is left empty.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Identity{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}, nil
}

// GetPreferences returns the preferences of userID.
func (s *AuthService) GetPreferences(ctx context.Context, userID string) (models.Preferences, error) {
	return s.repo.GetPreferences(ctx, userID)
}

// UpdatePreferences validates and stores p. Empty fields keep their defaults.
func (s *AuthService) UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error {
	def := models.DefaultPreferences()
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	if p.Language == "" {
		p.Language = def.Language
	}
	if p.DefaultView == "" {
		p.DefaultView = def.DefaultView
	}
	if err := validate.Struct(preferencesRequest(p)); err != nil {
		return formatValidationError(err)
	}
	return s.repo.UpdatePreferences(ctx, userID, p)
}
