// Package blob defines the storage interface for uploaded company files and
// the helpers shared by its backends.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrForeignRef = errors.New("reference does not belong to this store")
	ErrInvalidKey = errors.New("invalid object key")
)

// Store persists files and hands back durable references to them.
type Store interface {
	// Put stores the content under key and returns the reference to record.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete removes the object a reference points at.
	Delete(ctx context.Context, ref string) error
}

// NewKey returns a fresh object key for a file uploaded into slot.
// Every call yields a distinct key, so no two uploads share an object.
func NewKey(slot, filename string) string {
	return slot + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

// KeyFromRef strips the store's public base from ref.
func KeyFromRef(base, ref string) (string, error) {
	prefix := strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignRef, ref)
	}
	key := strings.TrimPrefix(ref, prefix)
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// RefFromKey joins the store's public base and key.
func RefFromKey(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

// ValidateKey rejects empty keys and keys that escape their root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

const sniffLen = 3072

// Sniff detects the content type of r. The returned reader replays the
// consumed header followed by the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	mime := mimetype.Detect(head)
	return mime.String(), io.MultiReader(bytes.NewReader(head), r), nil
}
