package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Credentials is what a login leaves behind on the client side.
type Credentials struct {
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
}

// CredentialStore persists the current token. Load returns nil, nil when
// nobody is logged in.
type CredentialStore interface {
	Load() (*Credentials, error)
	Save(creds *Credentials) error
	Clear() error
}

// FileCredentialStore keeps credentials in a YAML file readable only by the owner.
type FileCredentialStore struct {
	Path string
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{Path: path}
}

// DefaultCredentialsPath is ~/.config/plannerctl/credentials.yaml.
func DefaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "plannerctl", "credentials.yaml")
}

func (s *FileCredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.Path, err)
	}
	if creds.Token == "" {
		return nil, nil
	}
	return &creds, nil
}

func (s *FileCredentialStore) Save(creds *Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// MemoryCredentialStore is for tests and embedding.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func (s *MemoryCredentialStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

func (s *MemoryCredentialStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *creds
	s.creds = &c
	return nil
}

func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}
