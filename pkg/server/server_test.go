package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadServer(t *testing.T) {
	config.ConfigGlobal = config.DefaultConfig()
	config.ConfigGlobal.DbSqlite = ":memory:"
	srv, err := NewUploadServer("0", "test")
	require.NoError(t, err)
	defer srv.Close(time.Second)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Upload an Image for Prediction")
	// fixed endpoint mode has no model choice
	assert.NotContains(t, w.Body.String(), `name="model"`)
	assert.NotEmpty(t, w.Header().Get(log.RequestIdHeader))

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "ripeness_uploader_http_requests_total")
}

func TestUploadServerHistoryDisabled(t *testing.T) {
	config.ConfigGlobal = config.DefaultConfig()
	config.ConfigGlobal.DbType = config.DB_NONE
	srv, err := NewUploadServer("0", "test")
	require.NoError(t, err)
	defer srv.Close(time.Second)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
