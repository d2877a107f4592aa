package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgurran/servicebay/internal/domain"
	redisx "github.com/mgurran/servicebay/internal/redis"
	redisrepo "github.com/mgurran/servicebay/internal/repository/redis"
	"github.com/mgurran/servicebay/internal/service"
	"github.com/mgurran/servicebay/internal/service/booking"
	"github.com/mgurran/servicebay/internal/service/holds"
	"github.com/mgurran/servicebay/internal/service/pricing"
)

const availabilityCacheTTL = 5 * time.Second

func NewRouter(
	svcs *service.Services,
	cache *redisrepo.Cache,
	idem *redisrepo.IdempotencyStore,
	pubsub *redisx.SlotsPubSub,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), MetricsMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/availability", handleGetAvailability(svcs, cache))

	r.POST("/holds", handleCreateHold(svcs, idem, cache, pubsub))
	r.DELETE("/holds/:id", handleReleaseHold(svcs, cache, pubsub))

	r.GET("/services/:id/price", handleResolvePrice(svcs))

	r.POST("/bookings", handleCreateBooking(svcs))
	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/confirm", handleConfirmBooking(svcs))
	r.POST("/bookings/:id/cancel", handleCancelBooking(svcs))

	return r
}

func handleGetAvailability(svcs *service.Services, cache *redisrepo.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		dateStr := c.Query("date")
		date, err := parseDate(dateStr)
		if err != nil {
			badRequest(c, "invalid date (expected YYYY-MM-DD)")
			return
		}

		resp, err := redisrepo.GetOrSetJSON(
			c.Request.Context(),
			cache,
			redisx.KeyAvailability(dateStr),
			availabilityCacheTTL,
			func(ctx context.Context) (AvailabilityResponse, error) {
				slots, err := svcs.Availability.GetDay(ctx, date)
				if err != nil {
					return AvailabilityResponse{}, err
				}
				out := AvailabilityResponse{Date: dateStr, Slots: make([]SlotDTO, 0, len(slots))}
				for _, s := range slots {
					out.Slots = append(out.Slots, SlotDTO{Time: s.Time, Available: s.Available})
				}
				return out, nil
			},
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=5", true)
	}
}

func handleCreateHold(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	cache *redisrepo.Cache,
	pubsub *redisx.SlotsPubSub,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date (expected YYYY-MM-DD)")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemHold(req.Date, req.Time, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		hold, err := svcs.Holds.CreateHold(c.Request.Context(), date, req.Time)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateHoldResponse{
			HoldID:    hold.ID.String(),
			Date:      hold.SlotDate,
			Time:      hold.SlotTime,
			ExpiresAt: hold.ExpiresAt.Format(time.RFC3339),
		}

		announceSlotChange(c.Request.Context(), cache, pubsub, hold.SlotDate)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func handleReleaseHold(svcs *service.Services, cache *redisrepo.Cache, pubsub *redisx.SlotsPubSub) gin.HandlerFunc {
	return func(c *gin.Context) {
		holdID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid hold id")
			return
		}

		released, err := svcs.Holds.ReleaseHold(c.Request.Context(), holdID)
		if err != nil {
			respondErr(c, err)
			return
		}

		announceSlotChange(c.Request.Context(), cache, pubsub, released.SlotDate)

		c.Status(http.StatusNoContent)
	}
}

// announceSlotChange drops the cached availability for the date and publishes
// the change. Both are best effort; the short cache TTL is the backstop.
func announceSlotChange(ctx context.Context, cache *redisrepo.Cache, pubsub *redisx.SlotsPubSub, date string) {
	if cache != nil {
		_ = cache.InvalidateDate(ctx, date)
	}
	if pubsub != nil {
		_ = pubsub.PublishSlotsChanged(ctx, date)
	}
}

func handleResolvePrice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		req := pricing.Request{ServiceID: serviceID}

		if s := c.Query("engine_tier_id"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(c, "invalid engine_tier_id")
				return
			}
			req.RequestedTierID = &v
		}

		if s := c.Query("engine_size_cc"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				badRequest(c, "invalid engine_size_cc")
				return
			}
			req.EngineSizeCc = &v
		}

		quote, err := svcs.Pricing.Resolve(c.Request.Context(), req)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, PriceQuoteResponse{
			UnitPricePence: quote.UnitPricePence,
			EngineTierID:   quote.EngineTierID,
			EngineTierCode: quote.EngineTierCode,
		})
	}
}

func handleCreateBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date (expected YYYY-MM-DD)")
			return
		}

		in := booking.CreateInput{
			OwnerID:  req.OwnerID,
			SlotDate: date,
			SlotTime: req.Time,
		}

		if req.HoldID != nil {
			hid, err := uuid.Parse(*req.HoldID)
			if err != nil {
				badRequest(c, "invalid hold_id")
				return
			}
			in.HoldID = &hid
		}

		for _, l := range req.Lines {
			in.Lines = append(in.Lines, booking.LineInput{
				ServiceID:       l.ServiceID,
				RequestedTierID: l.EngineTierID,
				EngineSizeCc:    l.EngineSizeCc,
			})
		}

		b, err := svcs.Booking.CreateDraft(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, BookingResponse{
			BookingID: b.ID.String(),
			Status:    string(b.Status),
			Date:      b.SlotDate.Format(domain.DateLayout),
			Time:      b.SlotTime,
		})
	}
}

func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
		if err != nil {
			badRequest(c, "invalid owner_id")
			return
		}

		b, lines, err := svcs.Booking.Get(c.Request.Context(), bookingID, ownerID)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := BookingResponse{
			BookingID: b.ID.String(),
			Status:    string(b.Status),
			Date:      b.SlotDate.Format(domain.DateLayout),
			Time:      b.SlotTime,
			Reference: b.Reference,
		}
		for _, l := range lines {
			resp.Lines = append(resp.Lines, BookingLineDTO{
				ServiceID:      l.ServiceID,
				EngineTierID:   l.EngineTierID,
				UnitPricePence: l.UnitPricePence,
			})
		}

		c.JSON(http.StatusOK, resp)
	}
}

func handleConfirmBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req OwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		summary, err := svcs.Booking.Confirm(c.Request.Context(), bookingID, req.OwnerID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ConfirmBookingResponse{
			BookingID:  summary.BookingID.String(),
			Reference:  summary.Reference,
			Date:       summary.SlotDate.Format(domain.DateLayout),
			Time:       summary.SlotTime,
			GrossPence: summary.GrossPence,
			VATPence:   summary.VATPence,
			NetPence:   summary.NetPence,
		})
	}
}

func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req OwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Booking.Cancel(c.Request.Context(), bookingID, req.OwnerID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// holds service
	case errors.Is(err, holds.ErrSlotTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "slot already taken"})
		return
	case errors.Is(err, holds.ErrHoldNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "hold not found"})
		return
	case errors.Is(err, holds.ErrInvalidSlot):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid slot time"})
		return
	// pricing service
	case errors.Is(err, pricing.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "service not found"})
		return
	case errors.Is(err, pricing.ErrInvalidConfiguration):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "no price is configured for this service"})
		return
	// booking service
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, booking.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking state does not permit this operation"})
		return
	case errors.Is(err, booking.ErrSlotConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "slot already taken by another booking"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
