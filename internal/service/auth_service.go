package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Session errors surfaced by the middleware.
var (
	ErrNoActiveSession     = errors.New("no active session")
	ErrSessionInvalidated  = errors.New("session invalidated")
	errUnexpectedSigningFn = errors.New("unexpected signing method")
)

// TokenType distinguishes candidate vs admin tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
	TokenTypeAdmin     TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
}

// Principal converts claims back into the authenticated identity.
func (c *Claims) Principal() model.Principal {
	return model.Principal{ID: c.UserID, Email: c.Email, Admin: c.TokenType == TokenTypeAdmin}
}

// AuthService handles password hashing, JWT issuing and session tracking.
type AuthService struct {
	cfg      *config.Config
	sessions SessionCache
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, sessions SessionCache) *AuthService {
	return &AuthService{cfg: cfg, sessions: sessions}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

// IssueToken signs a JWT for the principal and registers it as the active
// session. A newer login replaces the previous session.
func (s *AuthService) IssueToken(ctx context.Context, p model.Principal) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	tokenType := TokenTypeCandidate
	if p.Admin {
		tokenType = TokenTypeAdmin
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: tokenType,
		UserID:    p.ID,
		Email:     p.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.SetSession(ctx, p.ID, jti, s.cfg.JWTExpiry); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningFn, t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateSession checks that the token's JTI matches the active session.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) error {
	stored, err := s.sessions.GetSession(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if stored == "" {
		return ErrNoActiveSession
	}
	if stored != claims.ID {
		return ErrSessionInvalidated
	}
	return nil
}

// RevokeSession removes the principal's active session.
func (s *AuthService) RevokeSession(ctx context.Context, principalID string) error {
	return s.sessions.DeleteSession(ctx, principalID)
}

// CheckLoginAllowed returns ErrRateLimited once an email has used up its failed attempts.
func (s *AuthService) CheckLoginAllowed(ctx context.Context, email string) error {
	n, err := s.sessions.LoginAttempts(ctx, email)
	if err != nil {
		return fmt.Errorf("check login attempts: %w", err)
	}
	if n >= int64(s.cfg.LoginMaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// RecordLoginFailure counts a failed login against the email.
func (s *AuthService) RecordLoginFailure(ctx context.Context, email string) error {
	_, err := s.sessions.IncrLoginAttempts(ctx, email, s.cfg.LoginLockout)
	return err
}

// ResetLoginFailures clears the counter after a successful login.
func (s *AuthService) ResetLoginFailures(ctx context.Context, email string) error {
	return s.sessions.ResetLoginAttempts(ctx, email)
}
