// Package storage is the object storage collaborator for gallery media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidName is returned for bucket or object names that could escape
// the bucket.
var ErrInvalidName = errors.New("invalid object name")

// ObjectStore stores uploaded blobs and hands out public URLs for them.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, name, contentType string, data []byte) error
	PublicURL(bucket, name string) string
	Delete(ctx context.Context, bucket, name string) error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidName reports whether name is a single safe path segment.
func ValidName(name string) bool {
	return len(name) <= 255 && namePattern.MatchString(name) && !strings.Contains(name, "..")
}

// NewObjectName returns a fresh, time-ordered object name that keeps the
// extension of filename. Extensions that are not plain alphanumerics are
// dropped.
func NewObjectName(filename string) string {
	id := strings.ToLower(ulid.Make().String())
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || len(ext) > 10 || !namePattern.MatchString(ext) || strings.ContainsAny(ext, "._-") {
		return id
	}
	return id + "." + ext
}

// PreviewName is the object name of the WebP preview stored next to name.
func PreviewName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".preview.webp"
}

// NameFromURL extracts the object name from a URL produced by PublicURL
// for bucket. ok is false when url points elsewhere.
func NameFromURL(publicBase, bucket, url string) (name string, ok bool) {
	prefix := strings.TrimSuffix(publicBase, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name = strings.TrimPrefix(url, prefix)
	if !ValidName(name) {
		return "", false
	}
	return name, true
}

func checkNames(bucket, name string) error {
	if !ValidName(bucket) || !ValidName(name) {
		return fmt.Errorf("%w: %s/%s", ErrInvalidName, bucket, name)
	}
	return nil
}
