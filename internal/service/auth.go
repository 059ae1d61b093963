package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/id"
	"github.com/taskboard/taskboard-server/internal/store"
	"github.com/taskboard/taskboard-server/internal/validation"
)

// Authentication failures, worded for API clients.
var (
	ErrNoToken            = domainerrors.Unauthorized("Access denied. No token provided.")
	ErrInvalidToken       = domainerrors.Unauthorized("Invalid token.")
	ErrExpiredToken       = domainerrors.TokenExpired("Token expired.")
	ErrInvalidCredentials = domainerrors.InvalidCredentials("Invalid email or password")
	ErrEmailTaken         = domainerrors.AlreadyExists("A user with this email already exists")
	ErrAccountDisabled    = domainerrors.Forbidden("Account is disabled")
)

// TokenVerifier checks bearer tokens. *auth.Authenticator implements it.
type TokenVerifier interface {
	Verify(token string) (*auth.AccessClaims, error)
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	store     store.UserStore
	tokens    *auth.TokenService
	verifier  TokenVerifier
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service. verifier defaults to
// an authenticator accepting only tokens issued by tokens.
func NewAuthService(
	store store.UserStore,
	tokens *auth.TokenService,
	verifier TokenVerifier,
	logger *slog.Logger,
) *AuthService {
	if verifier == nil {
		verifier = auth.NewAuthenticator(tokens)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		verifier:  verifier,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRequest contains the data of a new account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User      *dto.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(req.Email)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: passwordHash,
		AvatarColor:  color.ForUser(userID),
		IsActive:     true,
		LastLoginAt:  now,
	}
	user.ID = userID
	user.InitTimestamps(now)

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, domain.NormalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	user.LastLoginAt = s.now()
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			user.PasswordHash = hash
		}
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Login still succeeds; the timestamp is informational.
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	return s.issue(user)
}

// Me returns the account of userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*dto.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return dto.NewUser(user), nil
}

// VerifyToken validates a bearer token and returns its user.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	if token == "" {
		return nil, nil, ErrNoToken
	}

	claims, err := s.verifier.Verify(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil, nil, ErrExpiredToken
	}
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrInvalidToken
	}
	return user, claims, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{User: dto.NewUser(user), Token: token, ExpiresAt: expiresAt}, nil
}
