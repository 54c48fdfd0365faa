package handler

import (
	"net/http"
	"time"

	"rentcar/internal/auth/service"
	apperrors "rentcar/pkg/errors"
	httputil "rentcar/pkg/http"
	"rentcar/pkg/logger"
	"rentcar/pkg/middleware"
	"rentcar/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionSigner interface {
	Sign(userID, role string) (string, time.Time, error)
}

type TokenResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Token   string `json:"token"`
}

type AuthHandler struct {
	service      service.AuthService
	verification service.VerificationManager
	sessions     SessionSigner
	authenticate func(httprouter.Handle) httprouter.Handle
	cookieTTL    time.Duration
	secureCookie bool
	log          *logger.Logger
}

func NewAuthHandler(
	service service.AuthService,
	verification service.VerificationManager,
	sessions SessionSigner,
	authenticate func(httprouter.Handle) httprouter.Handle,
	cookieTTL time.Duration,
	secureCookie bool,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verification: verification,
		sessions:     sessions,
		authenticate: authenticate,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
		log:          log,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	h.sendTokenResponse(w, "Register", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Login", apperrors.InvalidInput("Please provide an email and password"))
		return
	}

	user, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	h.sendTokenResponse(w, "Login", user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.SetTokenCookie(w, "none", time.Now().Add(10*time.Second), h.secureCookie)

	if err := httputil.WriteMessage(w, "Logout successful", struct{}{}); err != nil {
		h.log.Error("failed to write message response", "handler", "Logout", "operation", "WriteMessage", "error", err)
	}
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, "Me", apperrors.Unauthorized("Not authorized to access this route"))
		return
	}

	user, err := h.service.Me(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := h.verification.ConsumeOTP(r.Context(), ps.ByName("userId"), req.OTP); err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httputil.WriteMessage(w, "Email verified successfully", struct{}{}); err != nil {
		h.log.Error("failed to write message response", "handler", "Verify", "operation", "WriteMessage", "error", err)
	}
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.verification.IssueOTP(r.Context(), ps.ByName("userId")); err != nil {
		h.writeError(w, "ResendOTP", err)
		return
	}

	if err := httputil.WriteMessage(w, "Resend OTP successful", struct{}{}); err != nil {
		h.log.Error("failed to write message response", "handler", "ResendOTP", "operation", "WriteMessage", "error", err)
	}
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ForgotPassword", err)
		return
	}

	if err := h.verification.IssueResetToken(r.Context(), req.Email); err != nil {
		h.writeError(w, "ForgotPassword", err)
		return
	}

	if err := httputil.WriteMessage(w, "Email sent", struct{}{}); err != nil {
		h.log.Error("failed to write message response", "handler", "ForgotPassword", "operation", "WriteMessage", "error", err)
	}
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ResetPassword", err)
		return
	}

	err := h.verification.ConsumeResetToken(r.Context(), ps.ByName("id"), ps.ByName("token"), req.Password)
	if err != nil {
		h.writeError(w, "ResetPassword", err)
		return
	}

	if err := httputil.WriteMessage(w, "Password reset successful", struct{}{}); err != nil {
		h.log.Error("failed to write message response", "handler", "ResetPassword", "operation", "WriteMessage", "error", err)
	}
}

func (h *AuthHandler) sendTokenResponse(w http.ResponseWriter, handler string, user *model.User) {
	token, _, err := h.sessions.Sign(user.ID, user.Role)
	if err != nil {
		h.writeError(w, handler, apperrors.Internal("Failed to issue session token", err))
		return
	}

	httputil.SetTokenCookie(w, token, time.Now().Add(h.cookieTTL), h.secureCookie)

	if err := httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Token:   token,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *AuthHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuthHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/login", h.Login)
	router.GET("/api/v1/auth/logout", h.Logout)
	router.GET("/api/v1/auth/me", h.authenticate(h.Me))
	router.PUT("/api/v1/auth/verified/:userId", h.Verify)
	router.POST("/api/v1/auth/verified/:userId/resend", h.ResendOTP)
	router.POST("/api/v1/auth/forgotpassword", h.ForgotPassword)
	router.PUT("/api/v1/auth/resetpassword/:id/:token", h.ResetPassword)
}
