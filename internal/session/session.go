// Package session holds the CLI's current login: the bearer token and the
// profile returned at login. It is persisted to a small JSON file so that
// separate opdctl invocations share one session.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

var ErrNotLoggedIn = errors.New("not logged in")

type fileContents struct {
	Token  string        `json:"token"`
	Sealed bool          `json:"sealed,omitempty"`
	User   model.Profile `json:"user"`
}

// Store is safe for concurrent use. Every read by the API client goes through
// Token, and Logout can be triggered from any request that sees a 401.
type Store struct {
	mu     sync.RWMutex
	path   string
	sealer security.Encryptor
	token  string
	user   *model.Profile
}

// Open loads the session at path if one exists. When sealer is non-nil the
// token is encrypted on disk. An unreadable file starts a fresh session.
func Open(path string, sealer security.Encryptor) (*Store, error) {
	s := &Store{path: path, sealer: sealer}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var fc fileContents
	if err := json.Unmarshal(raw, &fc); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring corrupt session file")
		return s, nil
	}
	token, err := s.open(fc)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring session sealed with another key")
		return s, nil
	}
	if token != "" {
		s.token = token
		user := fc.User
		s.user = &user
	}
	return s, nil
}

func (s *Store) open(fc fileContents) (string, error) {
	if !fc.Sealed {
		return fc.Token, nil
	}
	if s.sealer == nil {
		return "", security.ErrDecryption
	}
	raw, err := base64.StdEncoding.DecodeString(fc.Token)
	if err != nil {
		return "", err
	}
	plain, err := s.sealer.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the cached profile.
func (s *Store) User() (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.Profile{}, ErrNotLoggedIn
	}
	return *s.user, nil
}

func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Login replaces the session and persists it.
func (s *Store) Login(token string, user model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
	return s.save()
}

// UpdateUser refreshes the cached profile, e.g. after print settings change.
func (s *Store) UpdateUser(user model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return ErrNotLoggedIn
	}
	s.user = &user
	return s.save()
}

// Logout clears the token and profile and removes the file. Calling it
// without a session is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	fc := fileContents{Token: s.token, User: *s.user}
	if s.sealer != nil {
		sealed, err := s.sealer.Encrypt([]byte(s.token))
		if err != nil {
			return err
		}
		fc.Token = base64.StdEncoding.EncodeToString(sealed)
		fc.Sealed = true
	}

	raw, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
