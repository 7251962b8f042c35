package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeAuthInvalid, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeReasonRequired, http.StatusBadRequest},
		{CodeInsufficientFunds, http.StatusConflict},
		{CodeStateMismatch, http.StatusConflict},
		{CodeLimitViolation, http.StatusBadRequest},
		{CodeRGExcluded, http.StatusForbidden},
		{CodeModuleDisabled, http.StatusServiceUnavailable},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("UNKNOWN_CODE"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, New(tc.code, "x").Status(), "code %s", tc.code)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(CodeNotFound, "Player not found.", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "row not found")
}

func TestFrom(t *testing.T) {
	e := New(CodeStateMismatch, "already paid")
	assert.Equal(t, e, From(e))

	wrapped := Wrap(CodeValidation, "bad input", errors.New("field"))
	assert.Equal(t, CodeValidation, From(wrapped).Code)

	// Plain errors become INTERNAL.
	plain := From(errors.New("db exploded"))
	assert.Equal(t, CodeInternal, plain.Code)
	assert.ErrorContains(t, plain, "db exploded")
}

func TestAbortWritesEnvelope(t *testing.T) {
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		Abort(c, New(CodeLimitViolation, "Deposit below minimum.").WithMeta("min_cents", 100))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Meta    map[string]any `json:"meta"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LIMIT_VIOLATION", resp.Error.Code)
	assert.Equal(t, "Deposit below minimum.", resp.Error.Message)
	assert.Equal(t, float64(100), resp.Error.Meta["min_cents"])
}
