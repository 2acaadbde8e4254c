package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sheetpulse/pkg/contracts/domain"
)

// Store persists the named-source list. Implementations keep insertion
// order, return ErrSourceExists from Insert for a taken name and
// ErrSourceNotFound from Delete for an unknown one.
type Store interface {
	List(ctx context.Context) ([]domain.NamedSource, error)
	Insert(ctx context.Context, src domain.NamedSource) error
	Delete(ctx context.Context, name string) error
}

// MemoryStore keeps sources in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	sources []domain.NamedSource
}

// NewMemoryStore returns a store preloaded with seed.
func NewMemoryStore(seed ...domain.NamedSource) *MemoryStore {
	return &MemoryStore{sources: append([]domain.NamedSource(nil), seed...)}
}

func (s *MemoryStore) List(_ context.Context) ([]domain.NamedSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.NamedSource(nil), s.sources...), nil
}

func (s *MemoryStore) Insert(_ context.Context, src domain.NamedSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.sources, src.Name) >= 0 {
		return ErrSourceExists
	}
	s.sources = append(s.sources, src)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.sources, name)
	if i < 0 {
		return ErrSourceNotFound
	}
	s.sources = append(s.sources[:i], s.sources[i+1:]...)
	return nil
}

// FileStore keeps sources in a JSON document. Every mutation rewrites the
// whole file through a temp file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// linksDocument is the on-disk layout of a FileStore.
type linksDocument struct {
	Links []domain.NamedSource `json:"links"`
}

// NewFileStore returns a store backed by path. A missing file reads as an
// empty list; the parent directory is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("source file path is empty")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) List(_ context.Context) ([]domain.NamedSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Insert(_ context.Context, src domain.NamedSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := s.read()
	if err != nil {
		return err
	}
	if indexOf(links, src.Name) >= 0 {
		return ErrSourceExists
	}
	return s.write(append(links, src))
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(links, name)
	if i < 0 {
		return ErrSourceNotFound
	}
	return s.write(append(links[:i], links[i+1:]...))
}

func (s *FileStore) read() ([]domain.NamedSource, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var doc linksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode source file %s: %w", s.path, err)
	}
	return doc.Links, nil
}

func (s *FileStore) write(links []domain.NamedSource) error {
	if links == nil {
		links = []domain.NamedSource{}
	}
	data, err := json.MarshalIndent(linksDocument{Links: links}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".links-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write sources: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write sources: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace source file: %w", err)
	}
	return nil
}

func indexOf(sources []domain.NamedSource, name string) int {
	for i, s := range sources {
		if s.Name == name {
			return i
		}
	}
	return -1
}
