package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds the user id and password. IP and UserAgent are filled from the request for auditing.
type LoginRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse carries the access token and the profile it was issued for.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Department  Department `json:"department"`
	Position    string     `json:"position,omitempty"`
	Designation string     `json:"designation,omitempty"`
	Role        UserRole   `json:"role"`
}

// JWTClaims is the access token payload. Department scopes HOD access.
type JWTClaims struct {
	UserID     string     `json:"user_id"`
	Role       UserRole   `json:"role"`
	Department Department `json:"department"`
	Name       string     `json:"name"`
	jwt.RegisteredClaims
}
