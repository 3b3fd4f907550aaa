package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendShiftReminder_WithoutPushService(t *testing.T) {
	handler := SendShiftReminder(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/manager/workers/w1/shift-reminder", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "w1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}
