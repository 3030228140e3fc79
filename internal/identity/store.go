// Package identity gives each browser a stable client token and keeps the
// small per-client values the gallery form remembers.
package identity

import (
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Keys of the per-client store.
const (
	KeyClientID = "prompt_doumi_client_id"
	KeyNickname = "prompt_doumi_nickname"
)

// Store is a client-local key/value store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Clear(key string)
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// CookieMaxAge is the lifetime of identity cookies.
const CookieMaxAge = 400 * 24 * time.Hour

// CookieStore is a Store backed by long-lived cookies on one request. Values
// written during the request are visible to later reads of the same request.
type CookieStore struct {
	c       *fiber.Ctx
	secure  bool
	pending map[string]*string
}

// NewCookieStore wraps c. secure marks cookies HTTPS-only.
func NewCookieStore(c *fiber.Ctx, secure bool) *CookieStore {
	return &CookieStore{c: c, secure: secure, pending: make(map[string]*string)}
}

func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	raw := s.c.Cookies(key)
	if raw == "" {
		return "", false
	}
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *CookieStore) Set(key, value string) {
	s.pending[key] = &value
	s.c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *CookieStore) Clear(key string) {
	s.pending[key] = nil
	s.c.ClearCookie(key)
}
