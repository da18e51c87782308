package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/artfusion-app/artfusion-cli/internal/constants"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
)

//go:generate $MOCKGEN -source=token_store.go -destination=mocks/token_store_mock.go

// TokenStore owns the session token singleton.
// At most one token is valid per process: Set replaces any previously
// cached value and Clear invalidates it entirely.
type TokenStore interface {
	// Get returns the current token, lazily hydrating from durable storage
	// on first call. An empty string means no token is held.
	Get() string
	// Set persists a new token durably and updates the in-memory cache.
	// An empty token is equivalent to Clear.
	Set(token string)
	// Clear erases the durable copy and the in-memory cache.
	Clear()
	// InitFromPersistence eagerly hydrates the cache from durable storage.
	InitFromPersistence()
}

// tokenFileRecord is the on-disk YAML shape of the token file.
type tokenFileRecord struct {
	Token string `yaml:"token"`
}

// FileTokenStore is a TokenStore backed by a YAML file with owner-only
// permissions. All storage operations are best-effort: when the file
// cannot be read or written the store degrades to in-memory behavior
// without surfacing errors, matching the contract that persistence is
// never a hard dependency.
type FileTokenStore struct {
	path string

	mu       sync.RWMutex
	cached   string
	hydrated bool
}

// NewFileTokenStore creates a token store persisting to the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Get returns the current token, hydrating from disk on first use.
func (s *FileTokenStore) Get() string {
	s.mu.RLock()
	if s.hydrated {
		token := s.cached
		s.mu.RUnlock()

		return token
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hydrated {
		s.cached = s.readFromDisk()
		s.hydrated = true
	}

	return s.cached
}

// Set commits a new token. An empty value clears instead.
func (s *FileTokenStore) Set(token string) {
	if strings.TrimSpace(token) == "" {
		s.Clear()

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = token
	s.hydrated = true

	s.writeToDisk(token)
}

// Clear erases both the cache and the durable copy.
func (s *FileTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	s.hydrated = true

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logger.Debugf(context.Background(), "Could not remove token file %s: %v", s.path, err)
	}
}

// InitFromPersistence eagerly hydrates the in-memory cache.
func (s *FileTokenStore) InitFromPersistence() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = s.readFromDisk()
	s.hydrated = true
}

// Token implements the transport-facing token source: it reports the
// token attached to outbound requests.
func (s *FileTokenStore) Token() string {
	return s.Get()
}

// Invalidate implements the transport-facing token source: the HTTP
// facade may only clear the token, never set it.
func (s *FileTokenStore) Invalidate() {
	s.Clear()
}

func (s *FileTokenStore) readFromDisk() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debugf(context.Background(), "Could not read token file %s: %v", s.path, err)
		}

		return ""
	}

	var record tokenFileRecord
	if err = yaml.Unmarshal(data, &record); err != nil {
		logger.Debugf(context.Background(), "Could not parse token file %s: %v", s.path, err)

		return ""
	}

	return strings.TrimSpace(record.Token)
}

func (s *FileTokenStore) writeToDisk(token string) {
	data, err := yaml.Marshal(&tokenFileRecord{Token: token})
	if err != nil {
		logger.Debugf(context.Background(), "Could not encode token record: %v", err)

		return
	}

	if err = os.MkdirAll(filepath.Dir(s.path), constants.DefaultFolderPermissions); err != nil {
		logger.Debugf(context.Background(), "Could not create token directory: %v", err)

		return
	}

	if err = os.WriteFile(s.path, data, constants.SecretFilePermissions); err != nil {
		logger.Debugf(context.Background(), "Could not write token file %s: %v", s.path, err)
	}
}
