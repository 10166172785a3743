package handler

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
	"github.com/noah-isme/gema-evidence-api/internal/service"
	"github.com/noah-isme/gema-evidence-api/internal/utils"
)

// ReportRenderer writes a report as a printable document.
type ReportRenderer interface {
	Render(w io.Writer, report service.CourseReport) error
}

// ReportHandler serves course evidence reports.
type ReportHandler struct {
	service   service.ReportService
	renderer  ReportRenderer
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(service service.ReportService, renderer ReportRenderer, validate *validator.Validate, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service:   service,
		renderer:  renderer,
		validator: validate,
		logger:    logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report routes to the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("", h.show)
	router.Get("/print", h.print)
}

func (h *ReportHandler) show(c *fiber.Ctx) error {
	report, err := h.build(c)
	if err != nil {
		return h.fail(c, err)
	}

	observability.ReportsBuilt().WithLabelValues("json").Inc()
	return utils.SendSuccess(c, "course report", newReportResponse(report))
}

func (h *ReportHandler) print(c *fiber.Ctx) error {
	report, err := h.build(c)
	if err != nil {
		return h.fail(c, err)
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, report); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to render report")
	}

	observability.ReportsBuilt().WithLabelValues("html").Inc()
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *ReportHandler) build(c *fiber.Ctx) (service.CourseReport, error) {
	var query dto.ReportQuery
	if err := c.QueryParser(&query); err != nil {
		return service.CourseReport{}, fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(query); err != nil {
		return service.CourseReport{}, err
	}
	return h.service.Build(c.UserContext(), query.CourseID, query.UserID)
}

func (h *ReportHandler) fail(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return utils.SendError(c, fiberErr.Code, fiberErr.Message)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "course_id and user_id are required", validationDetails(err))
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user or course not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build report")
	}
}

// newReportResponse consumes the report's evidence sequence.
func newReportResponse(report service.CourseReport) dto.ReportResponse {
	response := dto.ReportResponse{
		Course:      dto.ReportCourse{ID: report.CourseID, Title: report.CourseTitle},
		Student:     dto.ReportStudent{ID: report.UserID, DisplayName: report.UserDisplayName, Email: report.UserEmail},
		GeneratedAt: report.GeneratedAt,
		Lessons:     append([]string{}, report.LessonTitles...),
		Progress: dto.ProgressResponse{
			StepsCompleted: report.Progress.StepsCompleted,
			StepsTotal:     report.Progress.StepsTotal,
			Percent:        report.Progress.Percent,
			OrderedQuizIDs: append([]uint{}, report.Progress.OrderedQuizIDs...),
		},
		Evidence: []dto.EvidenceLineResponse{},
		Quizzes:  make([]dto.QuizRowResponse, 0, len(report.Quizzes)),
	}

	if report.Evidence != nil {
		for line := range report.Evidence {
			response.Evidence = append(response.Evidence, dto.EvidenceLineResponse{
				TopicID:   line.TopicID,
				Text:      line.Text,
				Completed: line.Completed,
				Marker:    line.Marker(),
			})
		}
	}
	for _, row := range report.Quizzes {
		response.Quizzes = append(response.Quizzes, dto.QuizRowResponse{
			QuizID:     row.QuizID,
			Title:      row.Title,
			Percentage: row.Percentage,
			Passed:     row.Passed,
			Attempts:   row.Attempts,
			Status:     row.Status,
		})
	}
	return response
}
