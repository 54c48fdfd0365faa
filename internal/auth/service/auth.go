package service

import (
	"context"
	"errors"

	autherrors "rentcar/internal/auth/errors"
	"rentcar/internal/auth/repository"
	"rentcar/internal/auth/validator"
	"rentcar/pkg/config"
	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
	"rentcar/pkg/sanitizer"
)

type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	Me(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	users        repository.UserRepository
	verification VerificationManager
	hasher       PasswordHasher
	validator    *validator.UserValidator
	cfg          *config.Config
}

func NewAuthService(
	users repository.UserRepository,
	verification VerificationManager,
	hasher PasswordHasher,
	validator *validator.UserValidator,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:        users,
		verification: verification,
		hasher:       hasher,
		validator:    validator,
		cfg:          cfg,
	}
}

// Register creates an unverified user and issues the first verification code.
// A failed issuance is logged only, the user can request a new code.
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	s.sanitize(req)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return nil, apperrors.Validation("Registration validation failed", map[string]any{"error": err.Error()})
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Tel:      req.Tel,
		Role:     req.Role,
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, autherrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email is already registered")
		}
		s.cfg.Log.Error("Failed to create user", "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered", "user_id", user.ID, "role", user.Role)

	if err := s.verification.IssueOTP(ctx, user.ID); err != nil {
		s.cfg.Log.Warn("Failed to issue verification code after registration", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.InvalidInput("Please provide an email and password")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("Invalid credentials")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	if err := s.hasher.Compare(user.Password, req.Password); err != nil {
		s.cfg.Log.Warn("Login with wrong password", "user_id", user.ID)
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	if !user.Verified {
		return nil, apperrors.InvalidInput("Please verify your email before logging in")
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID)
	return user, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		if errors.Is(err, autherrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *authService) sanitize(req *model.RegisterRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if tel := sanitizer.NormalizePhone(req.Tel, s.cfg.PhoneRegions...); tel != "" {
		req.Tel = tel
	} else {
		req.Tel = sanitizer.TrimAndNormalize(req.Tel)
	}
}
