package middleware

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Logging())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c))
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	return app
}

func TestLogging_AssignsRequestID(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	id := resp.Header.Get(RequestIDHeader)
	assert.NotEmpty(t, id)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, id, body.String())
}

func TestLogging_KeepsIncomingRequestID(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestLogging_RecordsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{}) })

	app := newApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/fail"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
