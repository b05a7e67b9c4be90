package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestChecker(t *testing.T) {
	e := echo.New()
	c := NewChecker("test")
	c.RegisterRoutes(e)

	t.Run("live", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(e, "/api/v1/health/live").Code)
	})

	t.Run("ready follows SetReady", func(t *testing.T) {
		assert.Equal(t, http.StatusServiceUnavailable, serve(e, "/api/v1/health/ready").Code)
		c.SetReady(true)
		assert.Equal(t, http.StatusOK, serve(e, "/api/v1/health/ready").Code)
	})

	t.Run("health aggregates checks", func(t *testing.T) {
		c.AddCheck("watchlists", func(context.Context) error { return nil })
		rec := serve(e, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)

		c.AddCheck("kafka", func(context.Context) error { return errors.New("no brokers") })
		rec = serve(e, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "healthy", status.Checks["watchlists"].Status)
		assert.Equal(t, "no brokers", status.Checks["kafka"].Message)
	})
}
