package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evidence-api/internal/middleware"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
)

func TestObservabilityCountsAdminRequests(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Use(middleware.Observability(zerolog.Nop()))
	app.Get("/api/v2/admin/reports", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/api/v1/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	counter := observability.AdminErrors().WithLabelValues(http.MethodGet, "/api/v2/admin/reports", "404")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/admin/reports", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)

	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestCorrelationIDIsPropagated(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(observability.CorrelationID(c.UserContext()))
	})

	cases := map[string]struct {
		header string
		value  string
		reused bool
	}{
		"correlation header": {header: middleware.HeaderCorrelationID, value: "abc-123", reused: true},
		"request id header":  {header: fiber.HeaderXRequestID, value: "req_42.a", reused: true},
		"unsafe value":       {header: middleware.HeaderCorrelationID, value: "bad id!", reused: false},
		"too long":           {header: middleware.HeaderCorrelationID, value: strings.Repeat("a", 65), reused: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(tc.header, tc.value)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			id := resp.Header.Get(middleware.HeaderCorrelationID)
			require.Equal(t, id, string(body))
			if tc.reused {
				require.Equal(t, tc.value, id)
			} else {
				require.NotEqual(t, tc.value, id)
				require.NotEmpty(t, id)
			}
		})
	}
}

func decodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
