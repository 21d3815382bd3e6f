package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileStore keeps preferences in a TOML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(_ context.Context) (Values, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Values{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences %s: %w", s.path, err)
	}
	v := Values{}
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	return v, nil
}

// Write replaces the file atomically: a crash never leaves a truncated file.
func (s *FileStore) Write(_ context.Context, v Values) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]string(v)); err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write preferences %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences %s: %w", s.path, err)
	}
	return nil
}
