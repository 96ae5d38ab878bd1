package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCredentialsUnavailable = errors.New("transport credentials not configured")
	ErrInvalidToken           = errors.New("invalid access token")
)

// Credentials are the transport's API key pair. Tokens minted here are
// short-lived, bound to one identity, and never cached beyond a session.
type Credentials struct {
	APIKey    string
	APISecret string
}

func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// IssueToken mints an access token for userID valid for ttl.
func (c Credentials) IssueToken(userID string, ttl time.Duration) (string, error) {
	if !c.Configured() {
		return "", ErrCredentialsUnavailable
	}
	if userID == "" {
		return "", fmt.Errorf("issue token: %w", ErrInvalidToken)
	}
	payload := userID + "|" + strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + c.sign(payload), nil
}

// ValidateToken checks that token was minted by these credentials for userID
// and has not expired.
func (c Credentials) ValidateToken(token, userID string) error {
	if !c.Configured() {
		return ErrCredentialsUnavailable
	}
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return ErrInvalidToken
	}
	payload := string(raw)
	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return ErrInvalidToken
	}
	id, expStr, ok := strings.Cut(payload, "|")
	if !ok || id != userID {
		return ErrInvalidToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return ErrInvalidToken
	}
	return nil
}

func (c Credentials) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
