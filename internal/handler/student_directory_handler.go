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

// StudentDirectoryHandler lists students and their report links.
type StudentDirectoryHandler struct {
	service   service.StudentDirectoryService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentDirectoryHandler constructs the directory handler.
func NewStudentDirectoryHandler(service service.StudentDirectoryService, validate *validator.Validate, logger zerolog.Logger) *StudentDirectoryHandler {
	return &StudentDirectoryHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "student_directory_handler").Logger(),
	}
}

// Register attaches directory routes to the admin group.
func (h *StudentDirectoryHandler) Register(router fiber.Router) {
	router.Get("/students", h.list)
	router.Get("/users/:id/report-links", h.reportLinks)
}

func (h *StudentDirectoryHandler) list(c *fiber.Ctx) error {
	var req dto.StudentListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
	}

	rows, err := h.service.List(c.UserContext(), service.StudentListQuery{
		Search:  req.Search,
		OrderBy: req.OrderBy,
		Order:   req.Order,
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}

	items := make([]dto.StudentRowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.StudentRowResponse{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			CourseID:    row.CourseID,
			CourseTitle: row.CourseTitle,
			StartDate:   row.StartDate,
			StartedAt:   row.StartedAt,
			Completed:   row.Completed,
			Status:      row.Status,
			ReportURL:   row.ReportURL,
		})
	}

	return utils.SendSuccess(c, "students", dto.StudentListResponse{Items: items, Total: len(items)})
}

func (h *StudentDirectoryHandler) reportLinks(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	links, err := h.service.ReportLinks(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("user_id", userID).Msg("failed to list report links")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list report links")
	}

	response := dto.ReportLinksResponse{UserID: userID, Links: make([]dto.ReportLinkResponse, 0, len(links))}
	for _, link := range links {
		response.Links = append(response.Links, dto.ReportLinkResponse{
			CourseID:    link.CourseID,
			CourseTitle: link.CourseTitle,
			URL:         link.URL,
		})
	}
	return utils.SendSuccess(c, "report links", response)
}
