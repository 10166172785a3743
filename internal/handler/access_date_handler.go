package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/service"
	"github.com/noah-isme/gema-evidence-api/internal/utils"
)

// AccessDateHandler exposes the access-date preview and repair endpoints.
type AccessDateHandler struct {
	service service.AccessDateService
	logger  zerolog.Logger
}

// NewAccessDateHandler constructs the handler.
func NewAccessDateHandler(service service.AccessDateService, logger zerolog.Logger) *AccessDateHandler {
	return &AccessDateHandler{
		service: service,
		logger:  logger.With().Str("component", "access_date_handler").Logger(),
	}
}

// Register attaches access-date routes to the admin group.
func (h *AccessDateHandler) Register(router fiber.Router) {
	router.Get("/access-dates", h.preview)
	router.Post("/access-dates/repair", h.repairAll)
	router.Post("/users/:id/access-dates/repair", h.repairUser)
}

func (h *AccessDateHandler) preview(c *fiber.Ctx) error {
	affected, err := h.service.ListAffected(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list broken access dates")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list broken access dates")
	}

	items := make([]dto.AffectedUserResponse, 0, len(affected))
	for _, user := range affected {
		items = append(items, dto.AffectedUserResponse{
			UserID:       user.UserID,
			DisplayName:  user.DisplayName,
			Email:        user.Email,
			RegisteredAt: user.RegisteredAt,
			CourseIDs:    user.CourseIDs,
		})
	}
	return utils.SendSuccess(c, "users with broken access dates", dto.AccessDatePreviewResponse{Items: items, Total: len(items)})
}

func (h *AccessDateHandler) repairAll(c *fiber.Ctx) error {
	fixed, err := h.service.RepairAll(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Int("fixed", fixed).Msg("bulk access date repair failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "access date repair incomplete", dto.AccessDateRepairResponse{Fixed: fixed})
	}
	return utils.SendSuccess(c, "access dates repaired", dto.AccessDateRepairResponse{Fixed: fixed})
}

func (h *AccessDateHandler) repairUser(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fixed, err := h.service.Repair(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("user_id", userID).Msg("access date repair failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "access date repair failed")
	}
	return utils.SendSuccess(c, "access dates repaired", dto.AccessDateRepairResponse{UserID: userID, Fixed: fixed})
}
