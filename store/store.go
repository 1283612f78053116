package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/parizob/Peardox-2.0-sub001/logger"
)

var (
	bState     = []byte("client_state")
	bInterests = []byte("interests")

	keyTheme = []byte("theme")
)

// ErrNoSession is returned when writing session-scoped state without a
// signed-in user.
var ErrNoSession = errors.New("no active session")

// Store persists the small amount of local client state: the last-known
// theme preference (session-scoped) and a per-user interest cache.
type Store struct {
	db  *bolt.DB
	log *logger.Logger
}

// Open opens (creating if needed) the local state database
func Open(path string, log *logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeStorage, "opening state database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bState); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bInterests)
		return err
	})
	if err != nil {
		db.Close()
		return nil, logger.WrapError(err, logger.ErrorTypeStorage, "initializing state buckets")
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveTheme writes the theme preference. It is only persisted for
// signed-in users; callers without a session get ErrNoSession.
func (s *Store) SaveTheme(userID, theme string) error {
	if userID == "" {
		return ErrNoSession
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bState).Put(keyTheme, []byte(theme))
	})
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeStorage, "saving theme")
	}

	s.log.Debug("theme preference saved", map[string]interface{}{"theme": theme})
	return nil
}

// Theme returns the last saved theme preference, or "" when none exists
func (s *Store) Theme() (string, error) {
	var theme string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bState).Get(keyTheme); v != nil {
			theme = string(v)
		}
		return nil
	})
	if err != nil {
		return "", logger.WrapError(err, logger.ErrorTypeStorage, "reading theme")
	}
	return theme, nil
}

// CacheInterests stores a user's research interests so the feed can be
// personalized before the profile fetch completes on the next start.
func (s *Store) CacheInterests(userID string, interests []string) error {
	if userID == "" {
		return ErrNoSession
	}

	payload, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("encoding interests: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bInterests).Put([]byte(userID), payload)
	})
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeStorage, "caching interests")
	}
	return nil
}

// CachedInterests returns the cached interest list for a user, or nil
// when nothing is cached.
func (s *Store) CachedInterests(userID string) ([]string, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bInterests).Get([]byte(userID)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeStorage, "reading cached interests")
	}
	if payload == nil {
		return nil, nil
	}

	var interests []string
	if err := json.Unmarshal(payload, &interests); err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeData, "decoding cached interests")
	}
	return interests, nil
}

// ClearUser removes all state tied to a user; called on sign-out
func (s *Store) ClearUser(userID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bInterests).Delete([]byte(userID)); err != nil {
			return err
		}
		return tx.Bucket(bState).Delete(keyTheme)
	})
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeStorage, "clearing user state")
	}
	return nil
}
