package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/events"
	"github.com/noah-isme/gema-evidence-api/internal/service"
	"github.com/noah-isme/gema-evidence-api/internal/utils"
)

// HookHandler accepts host lifecycle events over HTTP.
type HookHandler struct {
	dispatcher events.Dispatcher
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHookHandler constructs the webhook handler.
func NewHookHandler(dispatcher events.Dispatcher, validate *validator.Validate, logger zerolog.Logger) *HookHandler {
	return &HookHandler{
		dispatcher: dispatcher,
		validator:  validate,
		logger:     logger.With().Str("component", "hook_handler").Logger(),
		now:        time.Now,
	}
}

// Register attaches webhook routes to the router group.
func (h *HookHandler) Register(router fiber.Router) {
	router.Post("/events", h.receive)
}

func (h *HookHandler) receive(c *fiber.Ctx) error {
	var payload dto.HostEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid event", validationDetails(err))
	}

	event := payload.Event(h.now())
	if err := h.dispatcher.Dispatch(c.UserContext(), event); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("kind", payload.Kind).Uint("user_id", payload.UserID).Msg("event dispatch failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "event handling failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "event processed", dto.HostEventResponse{
		Kind:       string(event.Kind),
		UserID:     event.UserID,
		OccurredAt: event.OccurredAt,
	})
}
