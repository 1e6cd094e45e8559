package domain

import "time"

// Auth providers recorded on a credential.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is a stored credential. Email is the table key and is always lowercase.
type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Verified     bool      `json:"verified" dynamodbav:"verified"`
	AuthProvider string    `json:"-" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub    string    `json:"-" dynamodbav:"google_sub,omitempty"`
	CreatedAt    time.Time `json:"-" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"-" dynamodbav:"updated_at"`
}

// PublicUser is the subset of User returned to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{ID: u.UserID, Email: u.Email, Verified: u.Verified}
}
