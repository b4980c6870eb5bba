package services

//go:generate mockgen -source=directory.go -destination=directory_mock.go -package=services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
	"github.com/sbilibin2017/gw-wallet-ledger/internal/models"
)

var (
	ErrInvalidRecipient  = errors.New("recipient email is malformed")
	ErrRecipientNotFound = errors.New("recipient not found")
)

var validate = validator.New()

// UserDirectory looks users up by email or id.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.UserDB, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
}

// DirectoryCache caches resolved directory entries.
type DirectoryCache interface {
	Get(ctx context.Context, email string) (*models.DirectoryEntry, error) // Returns nil on a miss
	Set(ctx context.Context, entry models.DirectoryEntry) error            // Stores an entry with expiration
}

// DirectoryService resolves recipient emails to account owners, cache first.
type DirectoryService struct {
	users UserDirectory
	cache DirectoryCache
}

// NewDirectoryService creates a new DirectoryService. cache may be nil.
func NewDirectoryService(users UserDirectory, cache DirectoryCache) *DirectoryService {
	return &DirectoryService{users: users, cache: cache}
}

// ResolveByEmail returns the owner registered under email.
func (s *DirectoryService) ResolveByEmail(ctx context.Context, email string) (*models.DirectoryEntry, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidRecipient
	}

	if s.cache != nil {
		entry, err := s.cache.Get(ctx, email)
		if err != nil {
			// A broken cache only costs a database read.
			logger.Log.Warnw("directory cache unavailable", "email", email, "error", err)
		}
		if entry != nil {
			return entry, nil
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Log.Infow("recipient not found", "email", email)
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		logger.Log.Errorw("failed to resolve recipient", "email", email, "error", err)
		return nil, err
	}

	entry := models.DirectoryEntry{UserID: user.UserID, Email: user.Email}
	if s.cache != nil {
		if err := s.cache.Set(ctx, entry); err != nil {
			logger.Log.Warnw("failed to cache directory entry", "email", email, "error", err)
		}
	}
	return &entry, nil
}

// ResolveByID returns the directory entry of a known user. It bypasses the
// cache, which is keyed by email.
func (s *DirectoryService) ResolveByID(ctx context.Context, userID uuid.UUID) (*models.DirectoryEntry, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Log.Warnw("user not found in directory", "user_id", userID.String())
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		logger.Log.Errorw("failed to resolve user", "user_id", userID.String(), "error", err)
		return nil, err
	}
	return &models.DirectoryEntry{UserID: user.UserID, Email: user.Email}, nil
}
