package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

var ErrUnauthenticated = errors.New("user not authenticated")

// AuthenticatedUser is the local user record owned by the auth collaborator.
// It is read-only here.
type AuthenticatedUser struct {
	ID         string
	FullName   string
	ProfilePic string
}

// Resolver projects authenticated users into transport identities and mints
// their access tokens.
type Resolver struct {
	creds    transport.Credentials
	tokenTTL time.Duration
}

func NewResolver(creds transport.Credentials) *Resolver {
	return &Resolver{creds: creds, tokenTTL: time.Hour}
}

// Resolve turns a local user record into the transport's participant
// identity. A missing or incomplete record is a precondition failure, not
// something to retry.
func (r *Resolver) Resolve(u *AuthenticatedUser) (transport.Identity, error) {
	if u == nil || u.ID == "" {
		return transport.Identity{}, ErrUnauthenticated
	}
	return transport.Identity{ID: u.ID, Name: u.FullName, Image: u.ProfilePic}, nil
}

// IssueAccessToken mints a short-lived access token scoped to id. Missing
// transport credentials surface as ErrCredentialsUnavailable, a fatal
// configuration error.
func (r *Resolver) IssueAccessToken(id transport.Identity) (string, error) {
	if id.ID == "" {
		return "", ErrUnauthenticated
	}
	token, err := r.creds.IssueToken(id.ID, r.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return token, nil
}
