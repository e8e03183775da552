package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()

	h.HealthHandler(rec, req)

	var rsp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.Equal(t, 200, rsp.Code)
	assert.Contains(t, rsp.Message, "room service is running")
}

func TestGetRoomHandler_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	r := chi.NewRouter()
	r.Get("/v1/rooms/{roomID}", h.GetRoomHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/notanumber", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceHandler_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	r := chi.NewRouter()
	r.Get("/v1/balances/{userID}", h.BalanceHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/balances/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntriesHandler_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	r := chi.NewRouter()
	r.Get("/v1/balances/{userID}/entries", h.EntriesHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/balances/x/entries", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlementsHandler_ArchiveDisabled(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/settlements", nil)
	rec := httptest.NewRecorder()

	h.SettlementsHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
