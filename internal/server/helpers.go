package server

import (
	"context"
	"errors"
	"path"
	"strings"

	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const localsSession = "adminSession"

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize    = 20
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// withSession records the admin on the request for handlers and logging.
func withSession(c *fiber.Ctx, session *models.Session) {
	c.Locals(localsSession, session)
	ctx := context.WithValue(c.UserContext(), middleware.AdminIDKey, session.UserID)
	c.SetUserContext(ctx)
}

// optionalSession resolves the admin session of the request, if any. A
// missing, invalid or revoked token means "no admin" here; only the auth
// routes report those as errors.
func (s *Server) optionalSession(c *fiber.Ctx) *models.Session {
	if session, ok := c.Locals(localsSession).(*models.Session); ok {
		return session
	}
	session, err := s.authService.GetSession(c.UserContext(), bearerToken(c))
	if err != nil || session == nil {
		return nil
	}
	withSession(c, session)
	return session
}

// AdminRequired returns middleware that rejects requests without a valid
// admin session.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		session, err := s.authService.GetSession(c.UserContext(), token)
		if err != nil {
			return models.Respond(c, err)
		}
		withSession(c, session)
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(localsSession).(*models.Session)
	return session
}

func (s *Server) mediaPrefix() string {
	prefix := s.config.MediaPublicBaseURL
	if prefix == "" || !strings.HasPrefix(prefix, "/") {
		return "/media"
	}
	return prefix
}

// inlineMediaTypes are served as-is; every other upload is a download.
var inlineMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// mediaResponseHeaders keeps uploaded files from running on the API origin.
// Only raster images render inline; anything else, SVG included, is sent as
// an opaque sandboxed attachment.
func mediaResponseHeaders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")

	ct := strings.ToLower(string(c.Response().Header.ContentType()))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if inlineMediaTypes[strings.TrimSpace(ct)] {
		return nil
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+path.Base(c.Path())+`"`)
	c.Set(fiber.HeaderContentSecurityPolicy, "sandbox")
	return nil
}
