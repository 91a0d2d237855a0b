package httputil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondWithError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.NewNotFound("service request", nil), http.StatusNotFound},
		{"bad request", errors.NewBadRequest("missing field", nil), http.StatusBadRequest},
		{"invalid coordinate", errors.InvalidCoordinate, http.StatusBadRequest},
		{"invalid transition", errors.NewInvalidTransition("pending", "accepted"), http.StatusConflict},
		{"already assigned", errors.AlreadyAssigned, http.StatusConflict},
		{"expired", errors.Expired, http.StatusConflict},
		{"cancelled", errors.Cancelled, http.StatusConflict},
		{"ineligible", errors.Ineligible, http.StatusForbidden},
		{"unclassified", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithError(c, tc.err)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRespondWithError_DistinctRaceMessages(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, errors.AlreadyAssigned)
	assert.Contains(t, w.Body.String(), "already taken")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondWithError(c, errors.Ineligible)
	assert.Contains(t, w.Body.String(), "no longer eligible")
}

func TestRespondWithError_UnclassifiedErrorIsOpaque(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithError(c, fmt.Errorf("pq: connection refused"))
	assert.NotContains(t, w.Body.String(), "pq:")
	assert.Contains(t, w.Body.String(), "internal server error")
}
