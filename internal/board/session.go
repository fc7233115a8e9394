package board

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Persisted key names under the base directory.
const (
	AdminAuthFile = "admin_auth"
	VisitorIDFile = "current_visitor_id"
)

// Session holds the moderator's authenticated flag between panel instances.
// It gates the UI only; it is not an access control mechanism.
type Session interface {
	Authenticated() bool
	SetAuthenticated(ok bool) error
}

// MemorySession is a Session that lives as long as the process.
type MemorySession struct {
	mu sync.Mutex
	ok bool
}

func (s *MemorySession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ok
}

func (s *MemorySession) SetAuthenticated(ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ok = ok
	return nil
}

// FileSession persists the flag as the presence of a file.
type FileSession struct {
	Path string
}

// NewFileSession returns a FileSession stored as baseDir/admin_auth.
func NewFileSession(baseDir string) *FileSession {
	return &FileSession{Path: filepath.Join(baseDir, AdminAuthFile)}
}

func (s *FileSession) Authenticated() bool {
	data, err := os.ReadFile(s.Path)
	return err == nil && strings.TrimSpace(string(data)) == "true"
}

func (s *FileSession) SetAuthenticated(ok bool) error {
	if !ok {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte("true\n"), 0600)
}

// IDStore persists the visitor identifier.
type IDStore interface {
	// Load returns "" when no identifier has been saved yet.
	Load() (string, error)
	Save(id string) error
}

// MemoryIDStore keeps the identifier in memory.
type MemoryIDStore struct {
	mu sync.Mutex
	id string
}

func (s *MemoryIDStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *MemoryIDStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

// FileIDStore keeps the identifier in a file.
type FileIDStore struct {
	Path string
}

// NewFileIDStore returns a FileIDStore stored as baseDir/current_visitor_id.
func NewFileIDStore(baseDir string) *FileIDStore {
	return &FileIDStore{Path: filepath.Join(baseDir, VisitorIDFile)}
}

func (s *FileIDStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileIDStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(id+"\n"), 0600)
}
