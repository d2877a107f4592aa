package httpgin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mgurran/servicebay/internal/service/booking"
	"github.com/mgurran/servicebay/internal/service/holds"
	"github.com/mgurran/servicebay/internal/service/pricing"
)

func TestRespondErr(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"slot taken", holds.ErrSlotTaken, http.StatusConflict},
		{"hold not found", holds.ErrHoldNotFound, http.StatusNotFound},
		{"invalid slot", holds.ErrInvalidSlot, http.StatusBadRequest},
		{"service not found", pricing.ErrServiceNotFound, http.StatusNotFound},
		{"no price configured", pricing.ErrInvalidConfiguration, http.StatusUnprocessableEntity},
		{"booking not found", booking.ErrBookingNotFound, http.StatusNotFound},
		{"invalid state", booking.ErrInvalidState, http.StatusConflict},
		{"slot conflict on confirm", booking.ErrSlotConflict, http.StatusConflict},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			// Errors arrive wrapped by the service layers.
			respondErr(c, fmt.Errorf("service.booking.Confirm:%w", tt.err))

			require.Equal(t, tt.want, w.Code)
		})
	}
}
