package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiKeyTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", APIKeyAuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	t.Setenv("OPS_API_KEY", "s3cret")
	app := apiKeyTestApp()

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"valid X-API-Key", "X-API-Key", "s3cret", fiber.StatusOK},
		{"valid bearer token", "Authorization", "Bearer s3cret", fiber.StatusOK},
		{"wrong key", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer nope", fiber.StatusUnauthorized},
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"basic auth is not accepted", "Authorization", "Basic czNjcmV0", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAPIKeyAuthMiddleware_Unconfigured(t *testing.T) {
	t.Setenv("OPS_API_KEY", "")
	app := apiKeyTestApp()

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
