// Package profile persists the single user's profile and decides which
// state of the greeting state machine a session starts in.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/fsutil"
)

// Profile is the durable record of the user.
type Profile struct {
	Name         string     `json:"name"`
	Interactions int        `json:"interactions"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
}

// placeholderNames are treated as no name at all.
var placeholderNames = map[string]struct{}{
	"unknown": {}, "user": {}, "guest": {}, "anonymous": {},
}

// HasName reports whether the profile carries a real name.
func (p Profile) HasName() bool {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return false
	}
	_, placeholder := placeholderNames[name]
	return !placeholder
}

// IsNew reports whether the user should be asked for a name: no real name,
// or fewer than minInteractions recorded interactions.
func (p Profile) IsNew(minInteractions int) bool {
	return !p.HasName() || p.Interactions < minInteractions
}

// Store reads and writes the profile file. A nil logger is allowed.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewStore returns a Store for path. An empty path keeps the profile in
// memory only.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the profile file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the profile. A missing or unreadable file yields the zero
// profile; corruption is logged, never returned.
func (s *Store) Load() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return Profile{}
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}
	}
	if err != nil {
		s.logger.Warn("profile unreadable; treating user as new", zap.String("path", s.path), zap.Error(err))
		return Profile{}
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("profile corrupted; treating user as new", zap.String("path", s.path), zap.Error(err))
		return Profile{}
	}
	if p.Interactions < 0 {
		p.Interactions = 0
	}
	p.Name = strings.TrimSpace(p.Name)
	return p
}

// Save atomically replaces the profile file.
func (s *Store) Save(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}
