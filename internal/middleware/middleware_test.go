package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog/internal/errs"
	"catalog/internal/middleware"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore(t *testing.T) {
	store := middleware.NewRateLimitStore(1, 2)

	a := store.Get("10.0.0.1")
	assert.Same(t, a, store.Get("10.0.0.1"))
	assert.NotSame(t, a, store.Get("10.0.0.2"))
	assert.Equal(t, 2, store.Len())

	assert.True(t, a.Allow())
	assert.True(t, a.Allow())
	assert.False(t, a.Allow())

	store.Cleanup(time.Now())
	assert.Equal(t, 2, store.Len())
	store.Cleanup(time.Now().Add(time.Hour))
	assert.Zero(t, store.Len())
}

func TestTimeout(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Timeout(time.Second))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestTimeoutDisabled(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Timeout(0))
	app.Get("/", func(c *fiber.Ctx) error {
		if _, ok := c.UserContext().Deadline(); ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRequestLoggerUsesErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(middleware.RequestLogger(zerolog.New(&buf)))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return errs.NewNotFoundError("Not found")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, "GET", entry["method"])
}

func TestAuthRequired(t *testing.T) {
	authService := services.NewAuthService("secret", time.Minute)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var httpErr *errs.HTTPError
			if assert.ErrorAs(t, err, &httpErr) {
				return c.Status(httpErr.Status).JSON(httpErr)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Post("/", middleware.AuthRequired(authService, zerolog.Nop()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(middleware.LocalSubject).(string))
	})

	token, err := authService.IssueToken("writer")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", fiber.StatusUnauthorized},
		{"bad token", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "Bearer " + token, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := middleware.NewMetrics()
	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/items", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Delete("/items/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	requests := []struct{ method, path string }{
		{http.MethodGet, "/items/1"},
		{http.MethodPost, "/items"},
		{http.MethodPost, "/items"},
		{http.MethodDelete, "/items/1"},
		{http.MethodGet, "/items/2"},
		{http.MethodPost, "/items"},
	}
	for _, r := range requests {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	families, err := metrics.Gatherer().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			got[labels["method"]+" "+labels["route"]+" "+labels["status"]] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"GET /items/:id 200":    2,
		"POST /items 201":       3,
		"DELETE /items/:id 200": 1,
	}, got)
}

func TestMetricsRegister(t *testing.T) {
	metrics := middleware.NewMetrics()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_test_total", Help: "test"})
	counter.Add(2)

	require.NoError(t, metrics.Register(counter))
	assert.Error(t, metrics.Register(counter))

	families, err := metrics.Gatherer().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "catalog_test_total" {
			found = true
			assert.Equal(t, float64(2), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
