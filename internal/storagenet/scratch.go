package storagenet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScratchStore stages transient blobs on the local filesystem while an
// upload or verification is in flight. Nothing in it survives a completed
// operation.
type ScratchStore struct {
	basePath string
}

// NewScratchStore initializes a ScratchStore rooted at basePath.
func NewScratchStore(basePath string) (*ScratchStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storagenet: scratch base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storagenet: ensure scratch path: %w", err)
	}
	return &ScratchStore{basePath: basePath}, nil
}

// Create opens a scratch file for the given key, cleaned to prevent
// directory traversal. The caller closes and removes it.
func (s *ScratchStore) Create(key string) (*os.File, error) {
	if s == nil {
		return nil, errors.New("storagenet: no scratch store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("storagenet: ensure scratch directory: %w", err)
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("storagenet: create scratch file: %w", err)
	}
	return f, nil
}

// Remove deletes a scratch file. A missing file is not an error.
func (s *ScratchStore) Remove(key string) error {
	if s == nil {
		return nil
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storagenet: remove scratch file: %w", err)
	}
	return nil
}

// sanitizeKey normalizes a key and prevents escaping the scratch root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storagenet: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storagenet: invalid key")
	}
	return cleaned, nil
}
