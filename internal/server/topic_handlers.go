package server

import (
	"promptdoumi/internal/catalog"
	"promptdoumi/internal/identity"
	"promptdoumi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetTopics handles GET /api/topics
// @Summary List topics
// @Description Home screen topics in display order
// @Tags topics
// @Produce json
// @Success 200 {array} catalog.Topic
// @Router /topics [get]
func (s *Server) GetTopics(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Topics())
}

// TopicResponse is a topic with its option groups.
type TopicResponse struct {
	catalog.Topic
	OptionGroups []catalog.OptionGroup `json:"option_groups"`
}

// GetTopic handles GET /api/topics/:id
// @Summary Get topic
// @Tags topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} TopicResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /topics/{id} [get]
func (s *Server) GetTopic(c *fiber.Ctx) error {
	id := c.Params("id")
	topic, ok := s.catalog.Topic(id)
	if !ok {
		return models.Respond(c, models.NewNotFoundError("Topic", id))
	}
	return c.JSON(TopicResponse{Topic: topic, OptionGroups: s.catalog.OptionsFor(topic.ID)})
}

// MeResponse pre-fills the gallery form.
type MeResponse struct {
	ClientID string `json:"client_id"`
	Nickname string `json:"nickname"`
	IsAdmin  bool   `json:"is_admin"`
}

// GetMe handles GET /api/me
// @Summary Current client
// @Description Client identity token and cached author nickname
// @Tags identity
// @Produce json
// @Success 200 {object} MeResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	return c.JSON(MeResponse{
		ClientID: identity.ClientID(c),
		Nickname: identity.Nickname(identity.StoreFrom(c)),
		IsAdmin:  s.optionalSession(c) != nil,
	})
}

// GetFeatureFlags returns configured feature flags evaluated for the current client.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"evaluated": s.featureFlags.Snapshot(identity.ClientID(c)),
	})
}
