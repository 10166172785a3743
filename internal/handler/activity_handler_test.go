package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/handler"
	"github.com/noah-isme/gema-evidence-api/internal/service"
)

type stubActivityService struct {
	lastRequest dto.ActivityListRequest
}

func (s *stubActivityService) Record(context.Context, service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{}, nil
}

func (s *stubActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	s.lastRequest = req
	return dto.ActivityListResponse{
		Items:      []dto.ActivityResponse{{ID: 1, Action: "access_date.corrected", EntityType: "user"}},
		Pagination: dto.PaginationMeta{Page: req.Page, PageSize: req.PageSize, TotalItems: 1, TotalPages: 1},
	}, nil
}

func TestActivityHandlerListClampsPaging(t *testing.T) {
	svc := &stubActivityService{}
	app := fiber.New()
	handler.NewActivityHandler(svc, zerolog.Nop()).Register(app.Group("/activities"))

	resp, body := doRequest(t, app, http.MethodGet, "/activities?page=0&page_size=1000&action=access_date.corrected&actor_id=4", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, dto.ActivityListRequest{Page: 1, PageSize: 200, ActorID: 4, Action: "access_date.corrected"}, svc.lastRequest)
	require.Equal(t, "access_date.corrected", gjson.GetBytes(body, "data.0.action").String())
	require.Equal(t, int64(200), gjson.GetBytes(body, "meta.page_size").Int())

	resp, _ = doRequest(t, app, http.MethodGet, "/activities?page=x", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
