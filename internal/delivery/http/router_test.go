package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/adapters/auth"
	"eventsignup/internal/delivery/http/controllers"
	"eventsignup/internal/delivery/http/middleware"
	"eventsignup/internal/metrics"
	"eventsignup/internal/repository/memory"
	"eventsignup/internal/services"
)

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, ready func(*http.Request) error) (http.Handler, *metrics.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	jwt := auth.NewJWT("test-secret", "eventsignup")
	m := metrics.New()

	accountSvc := services.NewAccountService(store.Accounts(), jwt, services.AccountConfig{})
	eventSvc := services.NewEventService(store.Events(), time.Second, nil)
	regSvc := services.NewRegistrationService(store.Events(), store.Registrations(), nil, m, logger,
		services.RegistrationConfig{BlockAfterStart: true, Timeout: time.Second})
	reportSvc := services.NewReportService(store.Events(), store.Registrations(), nil, m, logger,
		services.ReportConfig{BlockAfterStart: true, Timeout: time.Second})
	annSvc := services.NewAnnouncementService(store.Announcements(), time.Second, nil)

	router := NewRouter(RouterConfig{
		Logger:        logger,
		Auth:          middleware.Authenticator{Verifier: jwt, Logger: logger},
		Metrics:       m,
		CORSOrigins:   []string{"https://app.example.com"},
		Accounts:      controllers.NewAccountController(logger, accountSvc, false, true),
		Events:        controllers.NewEventController(logger, eventSvc),
		Registrations: controllers.NewRegistrationController(logger, regSvc, reportSvc),
		Reports:       controllers.NewReportController(logger, reportSvc),
		Announcements: controllers.NewAnnouncementController(logger, annSvc),
		Ready:         ready,
	})
	return router, m
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env apiEnvelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRouter_RegistrationFlow(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"identity_key": "U-owner", "display_name": "Owner", "phone": "0911000000", "birth_date": "1985-01-01", "gender": "M",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/v1/auth/identity", "", map[string]any{"identity_key": "U-owner"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.Token)

	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	rec, env = do(t, h, http.MethodPost, "/api/v1/events", tok.Token, map[string]any{
		"title": "Camp", "start_time": start, "end_time": start.Add(2 * time.Hour),
		"registration_deadline": start.Add(-time.Hour), "is_capacity_limited": true, "max_participants": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var event struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &event))

	rec, _ = do(t, h, http.MethodPost, "/api/v1/events/"+event.ID+"/registrations", tok.Token, map[string]any{"participant_name": "Kid"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/events/"+event.ID+"/registrations", tok.Token, map[string]any{"participant_name": "Second"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/events/"+event.ID+"/registration-info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Current int  `json:"current"`
		IsFull  bool `json:"is_full"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, 1, info.Current)
	assert.True(t, info.IsFull)
}

func TestRouter_RequiresAuth(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	for _, path := range []string{"/api/v1/me", "/api/v1/me/registrations", "/api/v1/registrations/stats"} {
		rec, env := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "unauthorized", env.Error.Code)
	}
	rec, _ := do(t, h, http.MethodGet, "/api/v1/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PublicReads(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec, _ := do(t, h, http.MethodGet, "/api/v1/events?registration_open=true", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/v1/announcements", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/v1/events/00000000-0000-0000-0000-000000000001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Ops(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		h, _ := newTestRouter(t, nil)
		rec, _ := do(t, h, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("healthz unavailable", func(t *testing.T) {
		h, _ := newTestRouter(t, func(*http.Request) error { return errors.New("db down") })
		rec, _ := do(t, h, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
	t.Run("metrics records route patterns", func(t *testing.T) {
		h, _ := newTestRouter(t, nil)
		do(t, h, http.MethodGet, "/api/v1/events", "", nil)
		rec, _ := do(t, h, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `http_requests_total{method="GET",route="GET /api/v1/events",status="200"} 1`)
	})
	t.Run("request id echoed", func(t *testing.T) {
		h, _ := newTestRouter(t, nil)
		rec, _ := do(t, h, http.MethodGet, "/healthz", "", nil)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	})
	t.Run("cors preflight", func(t *testing.T) {
		h, _ := newTestRouter(t, nil)
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
