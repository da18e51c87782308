package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artfusion-app/artfusion-cli/internal/constants"
)

//go:generate $MOCKGEN -source=handshake_store.go -destination=mocks/handshake_store_mock.go

// Handshake is the short-lived state written immediately before the
// browser is sent to an identity provider and consumed exactly once on
// return: the anti-CSRF state nonce and, for the PKCE provider, the
// code verifier.
type Handshake struct {
	// Provider is the identity provider the handshake was created for.
	Provider string `yaml:"provider"`
	// State is the random nonce round-tripped through the redirect.
	State string `yaml:"state"`
	// CodeVerifier is the PKCE verifier, set only for the PKCE provider.
	CodeVerifier string `yaml:"code_verifier,omitempty"`
	// CreatedAt records when the handshake was written.
	CreatedAt time.Time `yaml:"created_at"`
}

// HandshakeStore keeps at most one in-flight OAuth handshake.
type HandshakeStore interface {
	// Save stores the handshake, replacing any previous one.
	Save(handshake *Handshake) error
	// Consume returns the stored handshake for the given provider and
	// deletes it, regardless of whether it matches. A second Consume, or
	// a Consume with no stored handshake, fails with ErrNoHandshake.
	Consume(provider string) (*Handshake, error)
}

// Static error definitions for better error handling.
var (
	// ErrNoHandshake is returned when no handshake is stored - either none was
	// ever written, or it has already been consumed.
	ErrNoHandshake = errors.New("no OAuth handshake stored or it was already consumed")
	// ErrHandshakeProviderMismatch is returned when the stored handshake
	// belongs to a different provider than the callback that arrived.
	ErrHandshakeProviderMismatch = errors.New("stored OAuth handshake belongs to a different provider")
	// ErrNilHandshake is returned when a nil handshake is saved.
	ErrNilHandshake = errors.New("handshake cannot be nil")
)

// FileHandshakeStore is a HandshakeStore backed by a single YAML file.
// Consume renames the file aside before reading so a concurrent or
// replayed consume observes the record as already gone.
type FileHandshakeStore struct {
	path string
	mu   sync.Mutex
}

// NewFileHandshakeStore creates a handshake store persisting to the given path.
func NewFileHandshakeStore(path string) *FileHandshakeStore {
	return &FileHandshakeStore{path: path}
}

// Save stores the handshake, replacing any previous one.
func (s *FileHandshakeStore) Save(handshake *Handshake) error {
	if handshake == nil {
		return ErrNilHandshake
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if handshake.CreatedAt.IsZero() {
		handshake.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(handshake)
	if err != nil {
		return fmt.Errorf("failed to encode handshake: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(s.path), constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create handshake directory: %w", err)
	}

	if err = os.WriteFile(s.path, data, constants.SecretFilePermissions); err != nil {
		return fmt.Errorf("failed to write handshake file: %w", err)
	}

	return nil
}

// Consume reads and deletes the stored handshake.
// The record is destroyed even when the provider does not match, so a
// mismatched or replayed callback cannot retry against stale state.
func (s *FileHandshakeStore) Consume(provider string) (*Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Rename first: after this point no other consume can see the record.
	consumedPath := s.path + ".consumed"
	if err := os.Rename(s.path, consumedPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoHandshake
		}

		return nil, fmt.Errorf("failed to claim handshake file: %w", err)
	}

	data, err := os.ReadFile(consumedPath)

	// The claimed copy is deleted regardless of outcome.
	_ = os.Remove(consumedPath)

	if err != nil {
		return nil, fmt.Errorf("failed to read handshake file: %w", err)
	}

	var handshake Handshake
	if err = yaml.Unmarshal(data, &handshake); err != nil {
		return nil, fmt.Errorf("failed to parse handshake file: %w", err)
	}

	if handshake.Provider != provider {
		return nil, fmt.Errorf("%w: stored %q, callback %q",
			ErrHandshakeProviderMismatch, handshake.Provider, provider)
	}

	return &handshake, nil
}
