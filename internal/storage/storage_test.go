package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectName(t *testing.T) {
	a := NewObjectName("cat.PNG")
	b := NewObjectName("cat.png")

	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
	assert.True(t, ValidName(a))

	assert.Len(t, NewObjectName("README"), 26, "no extension keeps the bare ulid")
	assert.NotContains(t, NewObjectName("evil.p/ng"), "/")
	assert.False(t, strings.Contains(NewObjectName("x.tar_gz"), "_"))
}

func TestValidName(t *testing.T) {
	for _, ok := range []string{"gallery", "01hx.png", "a-b_c.webp"} {
		assert.True(t, ValidName(ok), ok)
	}
	for _, bad := range []string{"", "..", "../etc", "a/b", ".hidden", "a..b"} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestPreviewName(t *testing.T) {
	assert.Equal(t, "01abc.preview.webp", PreviewName("01abc.jpg"))
	assert.Equal(t, "01abc.preview.webp", PreviewName("01abc"))
}

func TestNameFromURL(t *testing.T) {
	name, ok := NameFromURL("/media/", "gallery", "/media/gallery/01abc.png")
	require.True(t, ok)
	assert.Equal(t, "01abc.png", name)

	_, ok = NameFromURL("/media", "gallery", "https://cdn.example.com/gallery/01abc.png")
	assert.False(t, ok)
	_, ok = NameFromURL("/media", "gallery", "/media/gallery/../secret")
	assert.False(t, ok)
}

func TestLocalStore_UploadURLDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/media/")
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "gallery", "01abc.png", "image/png", []byte("png-bytes")))

	got, err := os.ReadFile(filepath.Join(root, "gallery", "01abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
	assert.Equal(t, "/media/gallery/01abc.png", s.PublicURL("gallery", "01abc.png"))

	err = s.Upload(ctx, "gallery", "01abc.png", "image/png", []byte("again"))
	assert.EqualError(t, err, "The resource already exists")

	require.NoError(t, s.Delete(ctx, "gallery", "01abc.png"))
	require.NoError(t, s.Delete(ctx, "gallery", "01abc.png"), "deleting twice is fine")
	_, err = os.Stat(filepath.Join(root, "gallery", "01abc.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/media")
	err := s.Upload(context.Background(), "gallery", "../escape", "text/plain", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, s.Delete(context.Background(), "..", "x"), ErrInvalidName)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewLocalStore(t.TempDir(), "/media")
	assert.ErrorIs(t, s.Upload(ctx, "gallery", "a.png", "", nil), context.Canceled)
}
