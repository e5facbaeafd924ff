package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-booking/internal/dto"
	"github.com/prohmpiriya/event-booking/internal/service"
	"github.com/prohmpiriya/event-booking/pkg/response"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.String("event_id", req.EventID), attribute.Int("quantity", req.Quantity))

	booking, err := h.bookingService.CreateBooking(ctx, actor, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.FromBooking(booking)))
}

// UpdateBooking handles PUT /bookings/:id
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := h.bookingService.UpdateBooking(ctx, actor, bookingID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.FromBooking(booking)))
}

// CancelBooking handles DELETE /bookings/:id
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	if _, err := h.bookingService.CancelBooking(ctx, actor, bookingID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.FromBooking(booking)))
}

// ListBookings handles GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var q dto.ListBookingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.bookingService.ListBookings(ctx, actor, q.Page, q.PageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(
		dto.FromBookings(page.Bookings),
		page.Page,
		page.PageSize,
		int64(page.Total),
	))
}
