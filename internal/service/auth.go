package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fraudgate/fraudgate/internal/port/resultstore"
)

// ErrInvalidCredentials is returned for any failed reviewer authentication,
// without distinguishing unknown accounts from bad keys.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService manages reviewer accounts and their API keys. Keys are stored
// bcrypt-hashed; the clear key is shown exactly once at creation.
type AuthService struct {
	store resultstore.Store
}

// NewAuthService creates an AuthService over the reviewer store.
func NewAuthService(store resultstore.Store) *AuthService {
	return &AuthService{store: store}
}

// CreateReviewer registers a review-desk account and returns it together
// with the generated clear-text API key.
func (s *AuthService) CreateReviewer(ctx context.Context, email, name string) (*resultstore.Reviewer, string, error) {
	if email == "" {
		return nil, "", errors.New("email is required")
	}

	rawKey, err := generateKey(32)
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash api key: %w", err)
	}

	r := &resultstore.Reviewer{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		KeyHash:   string(hash),
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateReviewer(ctx, r); err != nil {
		return nil, "", fmt.Errorf("create reviewer: %w", err)
	}
	return r, rawKey, nil
}

// Authenticate verifies an email + API key pair and returns the reviewer.
func (s *AuthService) Authenticate(ctx context.Context, email, key string) (*resultstore.Reviewer, error) {
	r, err := s.store.GetReviewerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, resultstore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get reviewer: %w", err)
	}
	if !r.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(r.KeyHash), []byte(key)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return r, nil
}

// ListReviewers returns all reviewer accounts.
func (s *AuthService) ListReviewers(ctx context.Context) ([]resultstore.Reviewer, error) {
	return s.store.ListReviewers(ctx)
}

func generateKey(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
