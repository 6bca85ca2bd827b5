package dto

import (
	"time"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// SignUpRequest creates an email/password account.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=120"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned by every successful authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResponse bundles the issued tokens with the account profile.
type AuthResponse struct {
	Tokens TokenPair       `json:"tokens"`
	User   ProfileResponse `json:"user"`
}

// ProfileResponse is the public representation of an account.
type ProfileResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileUpdateRequest carries optional account settings changes.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=120"`
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	Country     *string `json:"country" validate:"omitempty,max=64"`
}

// NewProfileResponse converts a profile model into a DTO.
func NewProfileResponse(user models.UserProfile) ProfileResponse {
	return ProfileResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		Country:     user.Country,
		CreatedAt:   user.CreatedAt,
	}
}
