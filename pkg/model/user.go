package model

import "time"

type User struct {
	ID                  string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name                string     `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email               string     `json:"email" bson:"email" validate:"required,email,max=254"`
	Tel                 string     `json:"tel" bson:"tel" validate:"required,e164"`
	Role                string     `json:"role" bson:"role" validate:"required,oneof=user admin"`
	Password            string     `json:"-" bson:"password" validate:"required"`
	Verified            bool       `json:"verified" bson:"verified"`
	ResetPasswordToken  string     `json:"-" bson:"reset_password_token,omitempty"`
	ResetPasswordExpire *time.Time `json:"-" bson:"reset_password_expire,omitempty"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Tel      string `json:"tel" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyRequest struct {
	OTP string `json:"otp" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}
