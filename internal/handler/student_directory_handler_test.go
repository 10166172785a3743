package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/noah-isme/gema-evidence-api/internal/handler"
	"github.com/noah-isme/gema-evidence-api/internal/service"
)

type stubDirectoryService struct {
	rows      []service.StudentCourseRow
	links     []service.ReportLink
	linksErr  error
	lastQuery service.StudentListQuery
}

func (s *stubDirectoryService) List(_ context.Context, query service.StudentListQuery) ([]service.StudentCourseRow, error) {
	s.lastQuery = query
	return s.rows, nil
}

func (s *stubDirectoryService) ReportLinks(context.Context, uint) ([]service.ReportLink, error) {
	return s.links, s.linksErr
}

func newDirectoryApp(svc service.StudentDirectoryService) *fiber.App {
	app := fiber.New()
	handler.NewStudentDirectoryHandler(svc, newValidator(), zerolog.Nop()).Register(app.Group("/admin"))
	return app
}

func TestStudentDirectoryHandlerList(t *testing.T) {
	svc := &stubDirectoryService{rows: []service.StudentCourseRow{
		{UserID: 3, DisplayName: "Ana Núñez", CourseID: 1, CourseTitle: "Welding Basics", Status: service.CourseStatusCompleted, Completed: true, ReportURL: "/r/1/3"},
	}}

	resp, body := doRequest(t, newDirectoryApp(svc), http.MethodGet, "/admin/students?user_search=ana&orderby=last_name&order=desc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, service.StudentListQuery{Search: "ana", OrderBy: "last_name", Order: "desc"}, svc.lastQuery)
	require.Equal(t, int64(1), gjson.GetBytes(body, "data.total").Int())
	require.Equal(t, "Ana Núñez", gjson.GetBytes(body, "data.items.0.display_name").String())
	require.Equal(t, "/r/1/3", gjson.GetBytes(body, "data.items.0.report_url").String())
}

func TestStudentDirectoryHandlerRejectsUnknownSort(t *testing.T) {
	resp, body := doRequest(t, newDirectoryApp(&stubDirectoryService{}), http.MethodGet, "/admin/students?orderby=email", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "oneof", gjson.GetBytes(body, "details.OrderBy").String())
}

func TestStudentDirectoryHandlerReportLinks(t *testing.T) {
	svc := &stubDirectoryService{links: []service.ReportLink{{CourseID: 1, CourseTitle: "Welding Basics", URL: "/r/1/3"}}}
	app := newDirectoryApp(svc)

	resp, body := doRequest(t, app, http.MethodGet, "/admin/users/3/report-links", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/r/1/3", gjson.GetBytes(body, "data.links.0.url").String())

	svc.linksErr = service.ErrUserNotFound
	resp, _ = doRequest(t, app, http.MethodGet, "/admin/users/3/report-links", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
