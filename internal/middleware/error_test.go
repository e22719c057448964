package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/souschef-ai/backend/pkg/errors"
	"github.com/souschef-ai/backend/pkg/logger"
)

func errorTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/not-found", func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFound("recipe not found"))
		c.Abort()
	})
	r.GET("/raw", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused"))
		c.Abort()
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestErrorHandlerStatusFromCode(t *testing.T) {
	r := errorTestRouter()

	w := serve(r, "/not-found")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "recipe not found", body.Error.Message)
}

func TestErrorHandlerHidesRawErrors(t *testing.T) {
	r := errorTestRouter()

	w := serve(r, "/raw")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "pq:")
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	r := errorTestRouter()

	w := serve(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}
