// Package storage is the narrow client side of the platform document
// store: binary blobs addressed by name. Document content is opaque to
// the bid lifecycle; only references live on bids.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bidding/internal/models"
)

type DocumentStore interface {
	Store(ctx context.Context, name string, r io.Reader) (int64, error)
	Retrieve(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// LocalStore keeps documents under a root directory, one file per name.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return nil, fmt.Errorf("storage.NewLocalStore: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Store(_ context.Context, name string, r io.Reader) (int64, error) {
	path, err := s.path(name)
	if err != nil {
		return 0, fmt.Errorf("storage.LocalStore.Store: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("storage.LocalStore.Store: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("storage.LocalStore.Store: %w", err)
	}

	return n, nil
}

func (s *LocalStore) Retrieve(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, fmt.Errorf("storage.LocalStore.Retrieve: %w", err)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("storage.LocalStore.Retrieve: %w", models.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("storage.LocalStore.Retrieve: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return fmt.Errorf("storage.LocalStore.Delete: %w", err)
	}

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("storage.LocalStore.Delete: %w", models.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("storage.LocalStore.Delete: %w", err)
	}
	return nil
}

// path rejects names that would escape the root directory.
func (s *LocalStore) path(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(s.root, cleaned), nil
}
