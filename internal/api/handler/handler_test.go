package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rancheye/analysis_server/internal/api/middleware"
	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/testutil"
	"github.com/rancheye/analysis_server/internal/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAuth injects an operator without a real token.
func mockAuth(operator string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.OperatorKey, operator)
		c.Next()
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return db
}

func testRegistry(names ...string) *vision.Registry {
	registry := vision.NewRegistry()
	for _, name := range names {
		registry.Register(testutil.NewFakeProvider(name, testutil.OKResponse(nil, 0.9, 0, 0)))
	}
	return registry
}

func serve(t *testing.T, router *gin.Engine, method, path, body string) *response.Response {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}
