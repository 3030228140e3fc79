package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HeaderClientID lets non-browser clients present their token directly.
const HeaderClientID = "X-Client-ID"

const (
	localsClientID = "clientID"
	localsStore    = "identityStore"
	maxTokenLen    = 128
)

// Middleware resolves the client token of every request. A token in the
// X-Client-ID header wins; otherwise the cookie token is used, created if
// missing.
func Middleware(secureCookies bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := NewCookieStore(c, secureCookies)
		c.Locals(localsStore, store)

		if h := strings.TrimSpace(c.Get(HeaderClientID)); h != "" && len(h) <= maxTokenLen {
			c.Locals(localsClientID, h)
			return c.Next()
		}

		c.Locals(localsClientID, GetOrCreateClientID(store))
		return c.Next()
	}
}

// ClientID returns the token resolved by Middleware, or "" if it did not run.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsClientID).(string)
	return id
}

// StoreFrom returns the request's client store. Without Middleware a
// throwaway MemoryStore is returned.
func StoreFrom(c *fiber.Ctx) Store {
	if s, ok := c.Locals(localsStore).(Store); ok {
		return s
	}
	return NewMemoryStore()
}
