// Package auth is the credential/session collaborator: it owns user
// registration, login, and bearer-session resolution. Everything else treats
// its output as a read-only authenticated user record.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ujjwal250802/chatapplication/internal/identity"
	"github.com/Ujjwal250802/chatapplication/internal/store"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrEmailTaken     = errors.New("email already registered")
	ErrNoSession      = errors.New("no valid session")
)

// UserStore is the slice of persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, id string) (*store.User, error)
}

type Service struct {
	users UserStore

	mu       sync.RWMutex
	sessions map[string]string // bearer token -> user id
}

func NewService(users UserStore) *Service {
	return &Service{users: users, sessions: map[string]string{}}
}

func (s *Service) Register(ctx context.Context, fullName, email, password string) (*store.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" || len(password) < 6 {
		return nil, ErrBadCredentials
	}
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &store.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password and issues an opaque bearer session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *store.User, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = u.ID
	s.mu.Unlock()
	return token, u, nil
}

func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// UserFromToken resolves a bearer token to its user record.
func (s *Service) UserFromToken(ctx context.Context, token string) (*store.User, error) {
	s.mu.RLock()
	userID, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, ErrNoSession
	}
	return u, nil
}

// AuthenticatedUser projects a stored user into the read-only record the
// identity resolver consumes.
func AuthenticatedUser(u *store.User) *identity.AuthenticatedUser {
	if u == nil {
		return nil
	}
	return &identity.AuthenticatedUser{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic}
}

// LocalsUser is the fiber locals key the middleware stores the resolved user
// under; websocket handlers read it off the upgraded connection.
const LocalsUser = "auth_user"

// Middleware rejects requests without a valid bearer session and stashes the
// user record for downstream handlers.
func (s *Service) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "User not authenticated"})
		}
		u, err := s.UserFromToken(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "User not authenticated"})
		}
		c.Locals(LocalsUser, u)
		return c.Next()
	}
}

// UserFromCtx returns the user record the middleware resolved.
func UserFromCtx(c *fiber.Ctx) (*store.User, bool) {
	u, ok := c.Locals(LocalsUser).(*store.User)
	return u, ok
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if after, found := strings.CutPrefix(h, "Bearer "); found {
		return after
	}
	// websocket clients cannot set headers, they pass the token in the query
	return c.Query("token")
}
