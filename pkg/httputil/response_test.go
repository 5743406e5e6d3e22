package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-portal/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	h(c)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRespondWithSuccess(t *testing.T) {
	w, resp := perform(func(c *gin.Context) { RespondWithSuccess(c, gin.H{"ok": 1}) })

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "app error", err: errors.PaymentRequired("upgrade required"), status: http.StatusPaymentRequired, message: "upgrade required"},
		{name: "plain error hides message", err: stderrors.New("db password wrong"), status: http.StatusInternalServerError, message: "internal server error"},
		{name: "bad request", err: errors.BadRequest("invalid body", nil), status: http.StatusBadRequest, message: "invalid body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := perform(func(c *gin.Context) { RespondWithError(c, tt.err) })

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.status, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}
