// Package media stores uploaded images and turns stored references into
// client-facing URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for uploads whose extension is not allowed.
var ErrUnsupportedType = errors.New("unsupported file type")

// Store persists media objects. Save returns the reference to keep in the
// database: a path relative to the media root, or an absolute URL.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// NewKey builds a collision-free object key such as "avatars/<uuid>.png".
func NewKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}

// CheckExtension validates filename against the allowed extensions.
func CheckExtension(filename string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ErrUnsupportedType
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), ext) {
			return nil
		}
	}
	return ErrUnsupportedType
}

// LocalStore saves files on disk under a root directory that is served
// statically under the media URL.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if missing.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	rel, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return rel, nil
}

// Delete removes a file saved by this store. Absolute URLs are not ours and
// are ignored.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if ref == "" || isAbsoluteURL(ref) {
		return nil
	}
	rel, err := cleanKey(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	rel := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return rel, nil
}
