package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore persists one JSON document in a file. Writes go through a temp
// file and a rename so a crash never leaves a truncated document.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &JSONStore{
		filePath: filepath.Join(dataDir, filename),
	}, nil
}

// Path is the backing file.
func (s *JSONStore) Path() string {
	return s.filePath
}

// Load decodes the document into data. A missing file leaves data untouched.
func (s *JSONStore) Load(data interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(data)
}

// Save replaces the document with data.
func (s *JSONStore) Save(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(data)
}

// Update loads the document into data, applies fn and saves the result under
// one write lock. Nothing is written when fn returns an error.
func (s *JSONStore) Update(data interface{}, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(data); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.save(data)
}

// Exists reports whether the document has been written at least once.
func (s *JSONStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.filePath)
	return err == nil
}

func (s *JSONStore) load(data interface{}) error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(data)
}

func (s *JSONStore) save(data interface{}) error {
	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.filePath)
}
