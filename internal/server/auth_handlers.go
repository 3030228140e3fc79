package server

import (
	"promptdoumi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CredentialsRequest is the sign-in and sign-up body.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse carries the session, or null when signed out.
type SessionResponse struct {
	Session *models.Session `json:"session"`
}

// SignIn handles POST /api/auth/signin
// @Summary Admin sign-in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/signin [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	session, err := s.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// SignUp handles POST /api/auth/signup
// @Summary Admin sign-up
// @Description Only available while the admin_signup feature flag is on
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	session, err := s.authService.SignUp(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Session: session})
}

// SignOut handles POST /api/auth/signout
// @Summary Admin sign-out
// @Description Revokes the bearer token; without one this is a no-op
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /auth/signout [post]
func (s *Server) SignOut(c *fiber.Ctx) error {
	session, err := s.authService.SignOut(c.UserContext(), s.optionalSession(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// GetSession handles GET /api/auth/session
// @Summary Current admin session
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	session, err := s.authService.GetSession(c.UserContext(), bearerToken(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// UpdatePassword handles PUT /api/auth/password
// @Summary Change admin password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{password=string} true "New password"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/password [put]
func (s *Server) UpdatePassword(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	session, err := s.authService.UpdatePassword(c.UserContext(), sessionFrom(c), req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue WebSocket ticket
// @Description Single-use ticket for /api/ws/auth, valid for 30 seconds
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket, err := s.authService.IssueTicket(c.UserContext(), sessionFrom(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": 30,
	})
}
