package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/unikron/shieldswap/pkg/models"
)

// Storage persists sessions so a restart can resume them
type Storage interface {
	// Load returns nil, nil when no session is stored under key
	Load(key string) (*models.PersistedSession, error)
	Save(key string, s *models.PersistedSession) error
	Delete(key string) error
}

// Key builds the storage key of a (chain, user) pair
func Key(chainID int, user string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(user))
}

// FileStorage keeps all sessions in a single JSON file
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
}

// sessionFile represents the JSON structure for storage
type sessionFile struct {
	Sessions map[string]*models.PersistedSession `json:"sessions"`
}

// NewFileStorage creates a file backed storage at filePath
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	return &FileStorage{filePath: filePath}, nil
}

// Path returns the storage file path
func (s *FileStorage) Path() string {
	return s.filePath
}

// Load reads the session stored under key
func (s *FileStorage) Load(key string) (*models.PersistedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.read()
	if err != nil {
		return nil, err
	}
	return sessions[key], nil
}

// Save writes the session under key
func (s *FileStorage) Save(key string, session *models.PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.read()
	if err != nil {
		return err
	}
	sessions[key] = session
	return s.write(sessions)
}

// Delete removes the session stored under key
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := sessions[key]; !ok {
		return nil
	}
	delete(sessions, key)
	return s.write(sessions)
}

func (s *FileStorage) read() (map[string]*models.PersistedSession, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*models.PersistedSession), nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}
	if f.Sessions == nil {
		f.Sessions = make(map[string]*models.PersistedSession)
	}
	return f.Sessions, nil
}

func (s *FileStorage) write(sessions map[string]*models.PersistedSession) error {
	data, err := json.MarshalIndent(sessionFile{Sessions: sessions}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// MemoryStorage keeps sessions in memory
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]models.PersistedSession
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]models.PersistedSession)}
}

func (m *MemoryStorage) Load(key string) (*models.PersistedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStorage) Save(key string, s *models.PersistedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
