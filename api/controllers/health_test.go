package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Storefront-Env"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, ReadinessCheck{Name: "db", Pinger: ok}, ReadinessCheck{Name: "bigquery"}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"db":"ok"`)
		assert.NotContains(t, rec.Body.String(), "bigquery")
	})

	t.Run("redis down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthReady(cfg, nil, ReadinessCheck{Name: "db", Pinger: ok}, ReadinessCheck{Name: "redis", Pinger: down}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"redis":"down"`)
	})
}
