package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	autherrors "rentcar/internal/auth/errors"
	"rentcar/internal/auth/repository"
	"rentcar/internal/auth/validator"
	"rentcar/pkg/config"
	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
	"rentcar/pkg/notify"
	"rentcar/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	otpLength        = 6
	resetTokenLength = 32
)

// VerificationManager issues and retires the one-time codes of a user: the
// email verification OTP and the password reset token.
type VerificationManager interface {
	IssueOTP(ctx context.Context, userID string) error
	ConsumeOTP(ctx context.Context, userID string, code string) error
	IssueResetToken(ctx context.Context, email string) error
	ConsumeResetToken(ctx context.Context, userID string, token string, newPassword string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type verificationManager struct {
	users         repository.UserRepository
	verifications repository.VerificationRepository
	hasher        PasswordHasher
	notifier      notify.Notifier
	validator     *validator.UserValidator
	cfg           *config.Config
	now           func() time.Time
}

func NewVerificationManager(
	users repository.UserRepository,
	verifications repository.VerificationRepository,
	hasher PasswordHasher,
	notifier notify.Notifier,
	validator *validator.UserValidator,
	cfg *config.Config,
) VerificationManager {
	return &verificationManager{
		users:         users,
		verifications: verifications,
		hasher:        hasher,
		notifier:      notifier,
		validator:     validator,
		cfg:           cfg,
		now:           time.Now,
	}
}

// IssueOTP replaces the user's verification code with a fresh one and resets
// its expiry. Calling it again simply overwrites the previous code.
func (s *verificationManager) IssueOTP(ctx context.Context, userID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Verified {
		return apperrors.Conflict("User is already verified")
	}

	code, err := generateOTP()
	if err != nil {
		return apperrors.Internal("Failed to generate verification code", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	verification := &model.Verification{
		UserID:    user.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
	}
	if err := s.verifications.Upsert(ctx, verification); err != nil {
		s.cfg.Log.Error("Failed to store verification code", "user_id", user.ID, "error", err)
		return apperrors.Internal("Failed to issue verification code", err)
	}

	s.notifier.Notify(ctx, &model.Notification{
		Kind: model.NotificationVerificationCode,
		To:   user.Email,
		Name: user.Name,
		Data: map[string]string{
			"otp":        code,
			"expires_at": verification.ExpiresAt.Format(time.RFC3339),
		},
	})

	s.cfg.Log.Info("Verification code issued",
		"user_id", user.ID,
		"expires_at", verification.ExpiresAt,
	)
	return nil
}

// ConsumeOTP verifies the user when code matches the live verification. The
// verification is deleted conditionally on the code inside the transaction,
// so a concurrent second attempt observes NotFound.
func (s *verificationManager) ConsumeOTP(ctx context.Context, userID string, code string) error {
	verification, err := s.verifications.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, autherrors.ErrVerificationNotFound) {
			return apperrors.NotFound("Verification")
		}
		return apperrors.Internal("Failed to retrieve verification", err)
	}

	if verification.Expired(s.now()) {
		if err := s.verifications.DeleteByUserAndCode(ctx, userID, verification.Code); err != nil &&
			!errors.Is(err, autherrors.ErrVerificationNotFound) {
			s.cfg.Log.Warn("Failed to delete expired verification", "user_id", userID, "error", err)
		}
		s.cfg.Log.Info("Expired verification code rejected", "user_id", userID)
		return apperrors.NotFound("Verification")
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(verification.Code)) != 1 {
		s.cfg.Log.Warn("Incorrect verification code", "user_id", userID)
		return apperrors.IncorrectCode("Incorrect OTP")
	}

	err = s.users.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifications.DeleteByUserAndCode(sessCtx, userID, verification.Code); err != nil {
			if errors.Is(err, autherrors.ErrVerificationNotFound) {
				return apperrors.NotFound("Verification")
			}
			return apperrors.Internal("Failed to consume verification", err)
		}
		if err := s.users.MarkVerified(sessCtx, userID); err != nil {
			if errors.Is(err, autherrors.ErrNotFound) {
				return apperrors.NotFoundWithID("User", userID)
			}
			if errors.Is(err, autherrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid user ID format")
			}
			return apperrors.Internal("Failed to verify user", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to consume verification code", "user_id", userID, "error", err)
		return err
	}

	s.cfg.Log.Info("User verified", "user_id", userID)
	return nil
}

// IssueResetToken stores a fresh reset token on the user and sends the reset
// link. When the link cannot be handed off the token is withdrawn again.
func (s *verificationManager) IssueResetToken(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := s.validator.Validate(&model.ForgotPasswordRequest{Email: email}); err != nil {
		return apperrors.Validation("Invalid email", map[string]any{"error": err.Error()})
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, autherrors.ErrNotFound) {
			return apperrors.NotFound("User").WithDetails(map[string]any{"email": email})
		}
		return apperrors.Internal("Failed to retrieve user", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return apperrors.Internal("Failed to generate reset token", err)
	}

	expiresAt := s.now().UTC().Add(s.cfg.ResetTokenTTL).Truncate(time.Millisecond)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		s.cfg.Log.Error("Failed to store reset token", "user_id", user.ID, "error", err)
		return apperrors.Internal("Failed to issue reset token", err)
	}

	resetURL := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.ResetURL, "/"), user.ID, token)
	err = s.notifier.Deliver(ctx, &model.Notification{
		Kind: model.NotificationPasswordReset,
		To:   user.Email,
		Name: user.Name,
		Data: map[string]string{
			"reset_url":  resetURL,
			"expires_at": expiresAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		s.cfg.Log.Error("Failed to send reset link", "user_id", user.ID, "error", err)
		if clearErr := s.users.ClearResetToken(context.WithoutCancel(ctx), user.ID, token); clearErr != nil {
			s.cfg.Log.Warn("Failed to withdraw reset token", "user_id", user.ID, "error", clearErr)
		}
		return apperrors.Upstream("Email could not be sent", err)
	}

	s.cfg.Log.Info("Reset token issued", "user_id", user.ID, "expires_at", expiresAt)
	return nil
}

// ConsumeResetToken claims the token before hashing, so the token is spent
// even when the password cannot be stored.
func (s *verificationManager) ConsumeResetToken(ctx context.Context, userID string, token string, newPassword string) error {
	if err := s.validator.Validate(&model.ResetPasswordRequest{Password: newPassword}); err != nil {
		return apperrors.Validation("Invalid password", map[string]any{"error": err.Error()})
	}

	if err := s.users.ClaimResetToken(ctx, userID, token, s.now().UTC()); err != nil {
		if errors.Is(err, autherrors.ErrResetTokenMismatch) || errors.Is(err, autherrors.ErrInvalidID) {
			s.cfg.Log.Warn("Rejected reset token", "user_id", userID)
			return apperrors.InvalidOrExpiredToken("Invalid or expired token")
		}
		return apperrors.Internal("Failed to claim reset token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.cfg.Log.Error("Failed to hash new password", "user_id", userID, "error", err)
		return apperrors.Internal("Failed to reset password", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		s.cfg.Log.Error("Failed to store new password", "user_id", userID, "error", err)
		return apperrors.Internal("Failed to reset password", err)
	}

	s.cfg.Log.Info("Password reset", "user_id", userID)
	return nil
}

func (s *verificationManager) findUser(ctx context.Context, userID string) (*model.User, error) {
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

// generateOTP draws each digit independently and uniformly from 0-9.
func generateOTP() (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for range otpLength {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
