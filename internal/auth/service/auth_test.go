package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		req    model.RegisterRequest
		code   string
		status int
	}{
		{
			name: "invalid email",
			req:  model.RegisterRequest{Name: "Somchai", Email: "not-an-email", Tel: "+66812345678", Password: "secret123"},
			code: apperrors.CodeValidation, status: http.StatusBadRequest,
		},
		{
			name: "short password",
			req:  model.RegisterRequest{Name: "Somchai", Email: "k@x.com", Tel: "+66812345678", Password: "123"},
			code: apperrors.CodeValidation, status: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			req:  model.RegisterRequest{Name: "Somchai", Email: "k@x.com", Tel: "+66812345678", Password: "secret123", Role: "root"},
			code: apperrors.CodeValidation, status: http.StatusBadRequest,
		},
		{
			name: "invalid phone",
			req:  model.RegisterRequest{Name: "Somchai", Email: "k@x.com", Tel: "abc", Password: "secret123"},
			code: apperrors.CodeValidation, status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.auth.Register(context.Background(), &tt.req)
			assertAppError(t, err, tt.code, tt.status)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.register("dup@x.com")

	_, err := f.auth.Register(context.Background(), &model.RegisterRequest{
		Name: "Other", Email: "DUP@x.com", Tel: "+66812345678", Password: "secret123",
	})
	assertAppError(t, err, apperrors.CodeConflict, http.StatusBadRequest)
}

func TestRegister_SucceedsWhenCodeCannotBeStored(t *testing.T) {
	f := newFixture()
	f.verifications.upsertErr = errors.New("write failed")

	user, err := f.auth.Register(context.Background(), &model.RegisterRequest{
		Name: "Somchai", Email: "l@x.com", Tel: "+66812345678", Password: "secret123", Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", user.Role)
	}
	if f.notifier.last(model.NotificationVerificationCode) != nil {
		t.Error("no code notification expected when the code was not stored")
	}
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.register("m@x.com")
	_ = f.users.MarkVerified(ctx, user.ID)

	tests := []struct {
		name    string
		req     model.LoginRequest
		code    string
		status  int
		message string
	}{
		{
			name: "missing password", req: model.LoginRequest{Email: "m@x.com"},
			code: apperrors.CodeInvalidInput, status: http.StatusBadRequest, message: "Please provide an email and password",
		},
		{
			name: "missing email", req: model.LoginRequest{Password: "secret123"},
			code: apperrors.CodeInvalidInput, status: http.StatusBadRequest, message: "Please provide an email and password",
		},
		{
			name: "unknown email", req: model.LoginRequest{Email: "x@x.com", Password: "secret123"},
			code: apperrors.CodeInvalidInput, status: http.StatusBadRequest, message: "Invalid credentials",
		},
		{
			name: "wrong password", req: model.LoginRequest{Email: "m@x.com", Password: "wrong"},
			code: apperrors.CodeUnauthorized, status: http.StatusUnauthorized, message: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, &tt.req)
			assertAppError(t, err, tt.code, tt.status)
			if msg := apperrors.AsAppError(err).Message; msg != tt.message {
				t.Errorf("message = %q, want %q", msg, tt.message)
			}
		})
	}

	got, err := f.auth.Login(ctx, &model.LoginRequest{Email: "M@x.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login(): %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestMe(t *testing.T) {
	f := newFixture()
	user := f.register("n@x.com")

	got, err := f.auth.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Me(): %v", err)
	}
	if got.Email != "n@x.com" {
		t.Errorf("unexpected email %q", got.Email)
	}

	_, err = f.auth.Me(context.Background(), "507f1f77bcf86cd799439011")
	assertAppError(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}
