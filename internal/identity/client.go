package identity

import (
	"strings"

	"promptdoumi/internal/models"

	"github.com/google/uuid"
)

// GetOrCreateClientID returns the client token kept in s, generating and
// storing a random one on first use. An existing token is never replaced.
func GetOrCreateClientID(s Store) string {
	if id, ok := s.Get(KeyClientID); ok && strings.TrimSpace(id) != "" {
		return id
	}
	id := uuid.NewString()
	s.Set(KeyClientID, id)
	return id
}

// IsOwner reports whether token owns post. Posts without an owner token
// are owned by nobody.
func IsOwner(post *models.GalleryPost, token string) bool {
	if post == nil || !post.HasOwner() || token == "" {
		return false
	}
	return *post.OwnerToken == token
}

// Nickname returns the author name remembered from the last submission.
func Nickname(s Store) string {
	v, _ := s.Get(KeyNickname)
	return v
}

// RememberNickname stores name for pre-filling the next submission.
func RememberNickname(s Store, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	s.Set(KeyNickname, name)
}
