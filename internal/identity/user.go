// Package identity signs users in and out. Service is the server-side
// authenticator, Client talks to a remote Service and Session is the
// client-side holder of the signed-in user.
package identity

import (
	"context"
	"time"
)

const (
	UsersCollection         = "users"
	RevokedTokensCollection = "revoked_tokens"
)

// User is the public projection of an account.
type User struct {
	UID      string `json:"uid" yaml:"uid"`
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	PhotoURL string `json:"photoUrl,omitempty" yaml:"photoUrl,omitempty"`
}

// DisplayName falls back to the email when no name was given.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type Credentials struct {
	User      User      `json:"user" yaml:"user"`
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expiresAt" yaml:"expiresAt"`
}

// Authenticator is implemented by Service and by Client.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	Register(ctx context.Context, email, password, displayName string) (*Credentials, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*User, error)
	Users(ctx context.Context, uids []string) ([]User, error)
}
