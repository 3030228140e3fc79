package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// GalleryListTTL bounds how stale a cached gallery page may get.
	GalleryListTTL = 30 * time.Second
	// BuilderStateTTL is how long an idle builder form is remembered.
	BuilderStateTTL = 30 * 24 * time.Hour

	galleryListVersionKey = "gallery:list:version"
)

// GalleryListKey returns the cache key for one page of the gallery list.
// The key embeds the current list version so a bump invalidates every page.
func GalleryListKey(ctx context.Context, rdb *redis.Client, limit, offset int) string {
	version := int64(0)
	if rdb != nil {
		if v, err := rdb.Get(ctx, galleryListVersionKey).Int64(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("gallery:list:v%d:%d:%d", version, limit, offset)
}

// InvalidateGalleryList bumps the list version so cached pages are skipped.
func InvalidateGalleryList(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	return rdb.Incr(ctx, galleryListVersionKey).Err()
}

// BuilderStateKey returns the key for a client's builder state in one mode.
func BuilderStateKey(clientID, mode string) string {
	return fmt.Sprintf("builder:%s:%s", clientID, mode)
}

// RevokedTokenKey returns the blacklist key for a revoked session jti.
func RevokedTokenKey(jti string) string {
	return "blacklist:" + jti
}

// WSTicketKey returns the key of a single-use WebSocket ticket.
func WSTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}
