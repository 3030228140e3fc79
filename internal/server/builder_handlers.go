package server

import (
	"log/slog"
	"time"

	"promptdoumi/internal/catalog"
	"promptdoumi/internal/identity"
	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"
	"promptdoumi/internal/observability"
	"promptdoumi/internal/prompt"

	"github.com/gofiber/fiber/v2"
)

// BuilderResponse is everything the builder view renders.
type BuilderResponse struct {
	Topic        catalog.Topic         `json:"topic"`
	OptionGroups []catalog.OptionGroup `json:"option_groups"`
	State        prompt.State          `json:"state"`
}

// ComposeRequest is a stateless compose call.
type ComposeRequest struct {
	Mode       string             `json:"mode"`
	Base       string             `json:"base"`
	Selections []prompt.Selection `json:"selections"`
}

// GetBuilder handles GET /api/builder?mode=
// @Summary Builder view
// @Description Topic, option groups and the client's saved builder state
// @Tags builder
// @Produce json
// @Param mode query string false "Topic id; unknown modes fall back"
// @Success 200 {object} BuilderResponse
// @Router /builder [get]
func (s *Server) GetBuilder(c *fiber.Ctx) error {
	topic := s.catalog.TopicForMode(c.Query("mode"))

	state, err := s.builderStore.Load(c.UserContext(), identity.ClientID(c), topic.ID)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "builder state unavailable", slog.String("error", err.Error()))
		state = prompt.NewState(topic.ID)
	}
	// The copied acknowledgement may have expired since the last action.
	state = prompt.Reduce(state, prompt.Action{Type: prompt.ActionTick}, time.Now())

	return c.JSON(BuilderResponse{
		Topic:        topic,
		OptionGroups: s.catalog.OptionsFor(topic.ID),
		State:        state,
	})
}

// ApplyBuilderAction handles POST /api/builder/actions?mode=
// @Summary Apply builder action
// @Description Applies set_base, select, reset, copy or tick and returns the new state
// @Tags builder
// @Accept json
// @Produce json
// @Param mode query string false "Topic id"
// @Param request body prompt.Action true "Action"
// @Success 200 {object} prompt.State
// @Failure 400 {object} models.ErrorResponse
// @Router /builder/actions [post]
func (s *Server) ApplyBuilderAction(c *fiber.Ctx) error {
	var action prompt.Action
	if err := c.BodyParser(&action); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := action.Validate(); err != nil {
		return models.Respond(c, models.NewValidationError(err.Error()))
	}

	topic := s.catalog.TopicForMode(c.Query("mode"))
	if action.Type == prompt.ActionSelect {
		if err := s.checkSelection(topic.ID, action.Label, action.Value); err != nil {
			return models.Respond(c, err)
		}
	}

	ctx := c.UserContext()
	clientID := identity.ClientID(c)
	state, err := s.builderStore.Load(ctx, clientID, topic.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "builder state unavailable", slog.String("error", err.Error()))
		state = prompt.NewState(topic.ID)
	}

	next := prompt.Reduce(state, action, time.Now())
	if err := s.builderStore.Save(ctx, clientID, next); err != nil {
		middleware.Logger.WarnContext(ctx, "builder state not saved", slog.String("error", err.Error()))
	}
	if action.Type == prompt.ActionCopy && next.Copied {
		observability.PromptsComposedTotal.WithLabelValues(topic.ID).Inc()
	}

	return c.JSON(next)
}

// ComposePrompt handles POST /api/prompts/compose
// @Summary Compose prompt
// @Description Joins the base text and selected values without touching saved state
// @Tags builder
// @Accept json
// @Produce json
// @Param request body ComposeRequest true "Compose input"
// @Success 200 {object} object{prompt=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /prompts/compose [post]
func (s *Server) ComposePrompt(c *fiber.Ctx) error {
	var req ComposeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	topic := s.catalog.TopicForMode(req.Mode)
	sel := prompt.NewSelections()
	for _, entry := range req.Selections {
		if err := s.checkSelection(topic.ID, entry.Label, entry.Value); err != nil {
			return models.Respond(c, err)
		}
		sel.Set(entry.Label, entry.Value)
	}

	text := prompt.Compose(req.Base, sel)
	if text != "" {
		observability.PromptsComposedTotal.WithLabelValues(topic.ID).Inc()
	}
	return c.JSON(fiber.Map{"prompt": text})
}

// checkSelection accepts the empty placeholder or a value listed in the
// group's options.
func (s *Server) checkSelection(mode, label, value string) error {
	group, ok := s.catalog.Group(mode, label)
	if !ok {
		return models.NewValidationError("Unknown option group: " + label)
	}
	if value == "" {
		return nil
	}
	if _, ok := group.Resolve(value); !ok {
		return models.NewValidationError("Unknown option for " + label + ": " + value)
	}
	return nil
}
