package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"purchaseledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: purchase", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: already confirmed", service.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: bad quantity", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: postgres", service.ErrUnsupported), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "disk full")
			} else {
				assert.Contains(t, w.Body.String(), tt.err.Error())
			}
		})
	}
}

type lineBody struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

func TestBindAndValidate_Decimal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		body string
		ok   bool
	}{
		{`{"quantity":"2.5"}`, true},
		{`{"quantity":0}`, false},
		{`{"quantity":`, false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req lineBody
		assert.Equal(t, tt.ok, bindAndValidate(c, &req), tt.body)
		if !tt.ok {
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	}
}
