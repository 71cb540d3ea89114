// Package disk stores uploaded files under a local directory that the HTTP
// server exposes below a public prefix.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gartstein/companydir/internal/company/blob"
)

// Store writes objects to Root and references them as PublicPrefix/key.
type Store struct {
	root   string
	prefix string
}

// NewStore creates root if needed and returns a disk-backed blob.Store.
func NewStore(root, publicPrefix string) (*Store, error) {
	if root == "" {
		return nil, errors.New("disk root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{root: root, prefix: publicPrefix}, nil
}

// Root returns the directory objects are written to.
func (s *Store) Root() string {
	return s.root
}

// PublicPrefix returns the URL path references start with.
func (s *Store) PublicPrefix() string {
	return s.prefix
}

func (s *Store) Put(ctx context.Context, key, _ string, r io.Reader) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return blob.RefFromKey(s.prefix, key), nil
}

func (s *Store) Delete(_ context.Context, ref string) error {
	key, err := blob.KeyFromRef(s.prefix, ref)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return blob.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
