// Package tokenstore persists the backend bearer-token pair as key-value rows
// in the local database, optionally sealed with a secret key.
package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrack/internal/models"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"

	sealedPrefix = "sb1:"
	nonceSize    = 24
	keySize      = 32
)

// ErrSealedWithoutKey is returned when a stored value is sealed but the
// store has no key to open it.
var ErrSealedWithoutKey = errors.New("token is sealed but no TOKEN_STORE_KEY is configured")

// Store keeps tokens in the auth_tokens table.
type Store struct {
	db  *gorm.DB
	key *[keySize]byte
}

// New creates a Store. A nil or empty key stores values in plain text;
// otherwise key must be 32 bytes.
func New(db *gorm.DB, key []byte) (*Store, error) {
	s := &Store{db: db}
	if len(key) > 0 {
		if len(key) != keySize {
			return nil, fmt.Errorf("token store key must be %d bytes, got %d", keySize, len(key))
		}
		s.key = new([keySize]byte)
		copy(s.key[:], key)
	}
	return s, nil
}

// Tokens returns the stored pair. A missing row yields an empty token.
func (s *Store) Tokens(ctx context.Context) (models.TokenPair, error) {
	var rows []models.AuthToken
	if err := s.db.WithContext(ctx).
		Where("name IN ?", []string{accessTokenKey, refreshTokenKey}).
		Find(&rows).Error; err != nil {
		return models.TokenPair{}, fmt.Errorf("loading tokens: %w", err)
	}

	var pair models.TokenPair
	for _, row := range rows {
		value, err := s.open(row.Value)
		if err != nil {
			return models.TokenPair{}, fmt.Errorf("opening %s: %w", row.Name, err)
		}
		switch row.Name {
		case accessTokenKey:
			pair.AccessToken = value
		case refreshTokenKey:
			pair.RefreshToken = value
		}
	}
	return pair, nil
}

// SaveTokens replaces the stored pair. An empty token removes its row.
func (s *Store) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, value := range map[string]string{accessTokenKey: pair.AccessToken, refreshTokenKey: pair.RefreshToken} {
			if value == "" {
				if err := tx.Where("name = ?", name).Delete(&models.AuthToken{}).Error; err != nil {
					return fmt.Errorf("clearing %s: %w", name, err)
				}
				continue
			}
			sealed, err := s.seal(value)
			if err != nil {
				return err
			}
			row := models.AuthToken{Name: name, Value: sealed}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]any{"value": sealed, "updated_at": time.Now()}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("saving %s: %w", name, err)
			}
		}
		return nil
	})
}

// ClearTokens deletes the stored pair.
func (s *Store) ClearTokens(ctx context.Context) error {
	if err := s.db.WithContext(ctx).
		Where("name IN ?", []string{accessTokenKey, refreshTokenKey}).
		Delete(&models.AuthToken{}).Error; err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	return nil
}

func (s *Store) seal(value string) (string, error) {
	if s.key == nil {
		return value, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *Store) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s.key == nil {
		return "", ErrSealedWithoutKey
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decoding sealed token: %w", err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed token is truncated")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", errors.New("sealed token failed authentication")
	}
	return string(plain), nil
}

// Memory is an in-process token store.
type Memory struct {
	mu   sync.Mutex
	pair models.TokenPair
}

// Tokens returns the held pair.
func (m *Memory) Tokens(context.Context) (models.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, nil
}

// SaveTokens replaces the held pair.
func (m *Memory) SaveTokens(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	return nil
}

// ClearTokens forgets the held pair.
func (m *Memory) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = models.TokenPair{}
	return nil
}
