package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/noah-isme/gema-evidence-api/internal/handler"
	"github.com/noah-isme/gema-evidence-api/internal/service"
)

type stubAccessDateService struct {
	affected  []service.AffectedUser
	fixed     int
	err       error
	repairFor []uint
}

func (s *stubAccessDateService) Repair(_ context.Context, userID uint) (int, error) {
	s.repairFor = append(s.repairFor, userID)
	return s.fixed, s.err
}

func (s *stubAccessDateService) RepairCourse(context.Context, uint, uint) (bool, error) {
	return s.fixed > 0, s.err
}

func (s *stubAccessDateService) ListAffected(context.Context) ([]service.AffectedUser, error) {
	return s.affected, s.err
}

func (s *stubAccessDateService) RepairAll(context.Context) (int, error) {
	return s.fixed, s.err
}

func newAccessDateApp(svc service.AccessDateService) *fiber.App {
	app := fiber.New()
	handler.NewAccessDateHandler(svc, zerolog.Nop()).Register(app.Group("/admin"))
	return app
}

func TestAccessDateHandlerPreview(t *testing.T) {
	svc := &stubAccessDateService{affected: []service.AffectedUser{
		{UserID: 3, DisplayName: "Rosa", Email: "rosa@example.com", RegisteredAt: time.Date(2023, time.March, 14, 9, 30, 0, 0, time.UTC), CourseIDs: []uint{1, 4}},
	}}

	resp, body := doRequest(t, newAccessDateApp(svc), http.MethodGet, "/admin/access-dates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(1), gjson.GetBytes(body, "data.total").Int())
	require.Equal(t, "[1,4]", gjson.GetBytes(body, "data.items.0.course_ids").Raw)
}

func TestAccessDateHandlerRepairUser(t *testing.T) {
	svc := &stubAccessDateService{fixed: 2}
	app := newAccessDateApp(svc)

	resp, body := doRequest(t, app, http.MethodPost, "/admin/users/3/access-dates/repair", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(2), gjson.GetBytes(body, "data.fixed").Int())
	require.Equal(t, []uint{3}, svc.repairFor)

	resp, _ = doRequest(t, app, http.MethodPost, "/admin/users/0/access-dates/repair", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, svc.repairFor, 1)
}

func TestAccessDateHandlerRepairUserNotFound(t *testing.T) {
	svc := &stubAccessDateService{err: fmt.Errorf("load user: %w", service.ErrUserNotFound)}

	resp, _ := doRequest(t, newAccessDateApp(svc), http.MethodPost, "/admin/users/9/access-dates/repair", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAccessDateHandlerRepairAllReportsPartialFailure(t *testing.T) {
	svc := &stubAccessDateService{fixed: 5}
	app := newAccessDateApp(svc)

	resp, body := doRequest(t, app, http.MethodPost, "/admin/access-dates/repair", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(5), gjson.GetBytes(body, "data.fixed").Int())

	svc.err = errors.New("user 4: write failed")
	resp, body = doRequest(t, app, http.MethodPost, "/admin/access-dates/repair", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, int64(5), gjson.GetBytes(body, "details.fixed").Int())
}
