package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

func TestResolve(t *testing.T) {
	r := NewResolver(transport.Credentials{APIKey: "k", APISecret: "s"})

	id, err := r.Resolve(&AuthenticatedUser{ID: "u1", FullName: "Arjun", ProfilePic: "pic.png"})
	require.NoError(t, err)
	assert.Equal(t, transport.Identity{ID: "u1", Name: "Arjun", Image: "pic.png"}, id)
}

func TestResolveUnauthenticated(t *testing.T) {
	r := NewResolver(transport.Credentials{APIKey: "k", APISecret: "s"})

	_, err := r.Resolve(nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = r.Resolve(&AuthenticatedUser{FullName: "no id"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIssueAccessToken(t *testing.T) {
	creds := transport.Credentials{APIKey: "k", APISecret: "s"}
	r := NewResolver(creds)

	token, err := r.IssueAccessToken(transport.Identity{ID: "u1", Name: "Arjun"})
	require.NoError(t, err)
	assert.NoError(t, creds.ValidateToken(token, "u1"))
}

func TestIssueAccessTokenNoCredentials(t *testing.T) {
	r := NewResolver(transport.Credentials{})

	_, err := r.IssueAccessToken(transport.Identity{ID: "u1"})
	assert.ErrorIs(t, err, transport.ErrCredentialsUnavailable)
}
