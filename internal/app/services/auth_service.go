package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
	"github.com/bildungsfortschritt/api/internal/pkg/validation"
)

// User facing auth messages
const (
	MsgInvalidCredentials = "Ungültige E-Mail-Adresse oder Passwort"
	MsgEmailTaken         = "Ein Benutzer mit dieser E-Mail-Adresse existiert bereits"
	MsgInvalidSession     = "Ungültiger oder abgelaufener Refresh-Token"
)

// AuthResult is a user together with freshly issued tokens
type AuthResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// AuthService handles registration, login and token refresh
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate resolves the user behind an access token
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type authServiceImpl struct {
	userRepo   repositories.IUserRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger

	// compared against when the email is unknown so both failures cost a bcrypt round
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.IUserRepository, jwtService *auth.JWTService, logger zerolog.Logger) AuthService {
	dummy, err := auth.HashPassword("bildungsfortschritt-placeholder")
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to prepare placeholder password hash")
	}
	return &authServiceImpl{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
		dummyHash:  dummy,
	}
}

func (s *authServiceImpl) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Register creates an account and signs the new user in
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*AuthResult, error) {
	email := validation.NormalizeEmail(req.Email)

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError(MsgEmailTaken)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hash,
		IsBB:      req.IsBB,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Lehrjahr:  req.Lehrjahr,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, apperrors.NewCustomError(err, MsgEmailTaken)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.Role())).Msg("User registered")
	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password fail the same way.
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, fmt.Errorf("error finding user: %w", err)
		}
		auth.CheckPassword(s.dummyHash, req.Password)
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidCredentials, MsgInvalidCredentials)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidCredentials, MsgInvalidCredentials)
	}

	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new access token
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.NewCustomError(apperrors.ErrTokenNotFound, "Kein Refresh-Token vorhanden")
	}

	claims, err := s.jwtService.Validate(refreshToken, auth.RefreshToken)
	if err != nil {
		return "", apperrors.NewCustomError(err, MsgInvalidSession)
	}

	// the account may have been deleted since the token was issued
	if _, err := s.userRepo.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return "", apperrors.NewCustomError(apperrors.ErrTokenInvalid, MsgInvalidSession)
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	access, err := s.jwtService.GenerateAccessToken(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return access, nil
}

// Authenticate validates an access token and loads its user
func (s *authServiceImpl) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.jwtService.Validate(accessToken, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewCustomError(apperrors.ErrUnauthorized, "Benutzer nicht gefunden")
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}
