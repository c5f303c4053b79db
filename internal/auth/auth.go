// Package auth provides the authentication capability: account registration,
// credential verification and signed session tokens. It is injected into the
// services that need it rather than living as ambient global state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"submanager/internal/store"
)

var (
	// ErrNotAuthenticated is returned by any mutating operation invoked
	// without a session. Mutations fail loudly instead of silently no-oping.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailTaken         = errors.New("email already registered")
)

// Session identifies an authenticated user for the duration of a request.
type Session struct {
	UID   string
	Email string
}

// Authenticated reports whether the session belongs to a real user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UID != ""
}

type Service struct {
	users    *store.RecordStore
	secret   []byte
	tokenTTL time.Duration
}

func NewService(users *store.RecordStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Register creates an account and returns a session token for it.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if errors.Is(err, store.ErrUserExists) {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "uid", user.UID)
	return s.issueToken(user)
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", "uid", user.UID)
	return s.issueToken(user)
}

// Verify parses and validates a session token, returning the session it
// encodes.
func (s *Service) Verify(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if uid == "" {
		return nil, ErrInvalidToken
	}
	return &Session{UID: uid, Email: email}, nil
}

func (s *Service) issueToken(user store.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.UID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
