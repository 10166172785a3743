package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/service"
	"github.com/noah-isme/gema-evidence-api/internal/utils"
)

// CheckboxHandler serves the learner-facing checkbox gate.
type CheckboxHandler struct {
	service   service.CheckboxService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCheckboxHandler constructs the checkbox handler.
func NewCheckboxHandler(service service.CheckboxService, validate *validator.Validate, logger zerolog.Logger) *CheckboxHandler {
	return &CheckboxHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "checkbox_handler").Logger(),
	}
}

// Register attaches learner routes to the router group.
func (h *CheckboxHandler) Register(router fiber.Router) {
	router.Post("/checkboxes/save", h.save)
	router.Post("/checkboxes/load", h.load)
	router.Post("/checkboxes/complete", h.complete)
	router.Post("/steps/:id/view", h.view)
}

func (h *CheckboxHandler) save(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CheckboxSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	checked, err := h.service.Save(c.UserContext(), userID, payload.PostID, payload.Checked)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SendSuccess(c, "checkboxes saved", dto.CheckboxStateResponse{PostID: payload.PostID, Checked: checked})
}

func (h *CheckboxHandler) load(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	payload, err := h.postRequest(c)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	checked, err := h.service.Load(c.UserContext(), userID, payload.PostID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SendSuccess(c, "checkboxes loaded", dto.CheckboxStateResponse{PostID: payload.PostID, Checked: checked})
}

func (h *CheckboxHandler) complete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	payload, err := h.postRequest(c)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	state, err := h.service.MarkComplete(c.UserContext(), userID, payload.PostID)
	if err != nil {
		if errors.Is(err, service.ErrCheckboxesIncomplete) {
			return utils.Fail(c, fiber.StatusConflict, "check every box before continuing", newStepStateResponse(state))
		}
		return h.fail(c, err)
	}
	return utils.SendSuccess(c, "step completed", newStepStateResponse(state))
}

func (h *CheckboxHandler) view(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	postID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.View(c.UserContext(), userID, postID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SendSuccess(c, "step viewed", newStepStateResponse(state))
}

func (h *CheckboxHandler) postRequest(c *fiber.Ctx) (dto.CheckboxPostRequest, error) {
	var payload dto.CheckboxPostRequest
	if err := c.BodyParser(&payload); err != nil {
		return payload, err
	}
	if err := h.validator.Struct(payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (h *CheckboxHandler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrStepNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "lesson or topic not found")
	}
	requestLogger(h.logger, c).Error().Err(err).Msg("checkbox request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "checkbox request failed")
}

func newStepStateResponse(state service.StepState) dto.StepStateResponse {
	checked := state.Checked
	if checked == nil {
		checked = []int{}
	}
	return dto.StepStateResponse{
		PostID:       state.PostID,
		StepType:     state.StepType,
		CourseID:     state.CourseID,
		Checkboxes:   state.Checkboxes,
		Checked:      checked,
		Completed:    state.Completed,
		NextUnlocked: state.NextUnlocked,
	}
}
