package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/dto"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/prohmpiriya/event-booking/pkg/middleware"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	JWTSecret         string
	Issuer            string
	AccessTokenExpiry time.Duration
	BcryptCost        int
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Signup creates a user account and logs it in
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	// Login authenticates a user by email and password
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
}

// authService implements AuthService
type authService struct {
	userRepo repository.UserRepository
	config   *AuthServiceConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, config *AuthServiceConfig) AuthService {
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 7 * 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo: userRepo,
		config:   config,
	}
}

// Signup registers a new user with the user role
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.signup")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fail(span, domain.InvalidArgument("name", "is required"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to hash password: %w", err))
	}

	user := &domain.User{
		Name:         name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	return s.authResponse(span, user)
}

// Login verifies credentials and issues an access token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fail(span, domain.ErrInvalidCredentials)
		}
		return nil, fail(span, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fail(span, domain.ErrInvalidCredentials)
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	return s.authResponse(span, user)
}

func (s *authService) authResponse(span trace.Span, user *domain.User) (*dto.AuthResponse, error) {
	token, err := s.generateAccessToken(user, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        dto.FromUser(user),
	}, nil
}

// generateAccessToken signs the claims the JWT middleware expects
func (s *authService) generateAccessToken(user *domain.User, now time.Time) (string, error) {
	claims := middleware.TokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}
