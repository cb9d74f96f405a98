package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrInvalidCreds = errors.New("invalid credentials")
)

const tokenTTL = 7 * 24 * time.Hour

// AuthService is the concrete stand-in for the external identity
// collaborator: it supplies a caller identity and role to the HTTP surface.
// Tokens are timestamp:userID signed with HMAC-SHA256.
type AuthService struct {
	store     port.UserStore
	secretKey string
}

func NewAuthService(store port.UserStore, secretKey string) *AuthService {
	return &AuthService{
		store:     store,
		secretKey: secretKey,
	}
}

// Bootstrap creates the initial admin account when the user table is empty.
func (s *AuthService) Bootstrap(ctx context.Context, username, password string) error {
	hasUser, err := s.store.HasUser(ctx)
	if err != nil {
		return err
	}
	if hasUser || username == "" || password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.store.CreateUser(ctx, username, string(hash), domain.RoleAdmin)
	return err
}

func (s *AuthService) CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, username, string(hash), role)
}

// Login verifies credentials and mints a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCreds
	}
	return s.generateToken(user), nil
}

func (s *AuthService) generateToken(user *domain.User) string {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	userID := strconv.FormatInt(user.ID, 10)
	return timestamp + ":" + userID + ":" + s.sign(timestamp, userID)
}

func (s *AuthService) sign(timestamp, userID string) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(timestamp + ":" + userID))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateToken resolves a token to its user, rejecting bad signatures and
// tokens older than the TTL.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	timestamp, userIDStr, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(signature), []byte(s.sign(timestamp, userIDStr))) {
		return nil, ErrInvalidToken
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if time.Now().After(time.Unix(ts, 0).Add(tokenTTL)) {
		return nil, ErrExpiredToken
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}
