package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkly-api/internal/apperr"
	"linkly-api/internal/jwt"
	"linkly-api/internal/metrics"
	"linkly-api/internal/models"
	"linkly-api/internal/repository"
)

const (
	msgProvideRegisterFields = "Please provide name, email, and password"
	msgProvideLoginFields    = "Please provide an email and password"
	msgDuplicateEmail        = "A user with this email already exists"
	msgInvalidCredentials    = "Invalid credentials"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
}

type AuthServiceOption func(*authService)

// WithHashCost overrides the bcrypt cost
func WithHashCost(cost int) AuthServiceOption {
	return func(s *authService) {
		s.hashCost = cost
	}
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *jwt.JWTService
	hashCost   int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, jwtService *jwt.JWTService, logger *zap.Logger, m *metrics.Metrics, opts ...AuthServiceOption) AuthService {
	s := &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		hashCost:   bcrypt.DefaultCost,
		logger:     logger,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user account and signs them in
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperr.New(apperr.InvalidInput, msgProvideRegisterFields)
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		s.metrics.ObserveAuth("register", false)
		return nil, apperr.New(apperr.DuplicateEmail, msgDuplicateEmail)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.transient("Failed to look up user", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, s.transient("Failed to hash password", err)
	}

	user, err := s.userRepo.Create(ctx, name, email, string(hashedPassword))
	if errors.Is(err, repository.ErrEmailTaken) {
		s.metrics.ObserveAuth("register", false)
		return nil, apperr.Wrap(apperr.DuplicateEmail, msgDuplicateEmail, err)
	}
	if err != nil {
		return nil, s.transient("Failed to create user", err)
	}

	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		return nil, s.transient("Failed to generate token", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	s.metrics.ObserveAuth("register", true)

	return &models.RegisterResponse{
		Success: true,
		Token:   token,
		User: models.PublicUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	}, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.New(apperr.InvalidInput, msgProvideLoginFields)
	}

	// Unknown email and wrong password are reported identically.
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.ObserveAuth("login", false)
		return nil, apperr.New(apperr.InvalidCredentials, msgInvalidCredentials)
	}
	if err != nil {
		return nil, s.transient("Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.ObserveAuth("login", false)
		return nil, apperr.New(apperr.InvalidCredentials, msgInvalidCredentials)
	}

	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		return nil, s.transient("Failed to generate token", err)
	}

	s.metrics.ObserveAuth("login", true)

	return &models.LoginResponse{
		Success: true,
		Token:   token,
	}, nil
}

func (s *authService) transient(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperr.Wrap(apperr.Transient, msgInternalError, fmt.Errorf("%s: %w", strings.ToLower(msg), err))
}
