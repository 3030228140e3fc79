package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on disk under Root/<bucket>/<name>. The server
// exposes Root at PublicBase.
type LocalStore struct {
	Root       string
	PublicBase string
}

// NewLocalStore returns a store rooted at root, served under publicBase.
func NewLocalStore(root, publicBase string) *LocalStore {
	return &LocalStore{Root: root, PublicBase: strings.TrimSuffix(publicBase, "/")}
}

// Upload writes data to bucket/name. Existing objects are not overwritten.
func (s *LocalStore) Upload(ctx context.Context, bucket, name, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkNames(bucket, name); err != nil {
		return err
	}

	dir := filepath.Join(s.Root, bucket)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	// #nosec G304: bucket and name are validated single path segments
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errors.New("The resource already exists")
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	return f.Close()
}

// PublicURL returns the URL the object is served at.
func (s *LocalStore) PublicURL(bucket, name string) string {
	return s.PublicBase + "/" + bucket + "/" + name
}

// Delete removes bucket/name. Deleting a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, bucket, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkNames(bucket, name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.Root, bucket, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
