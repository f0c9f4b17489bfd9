package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"motorent/internal/app/dto"
	bookingapp "motorent/internal/app/handlers/booking"
	"motorent/internal/app/policies"
	domainbooking "motorent/internal/domain/booking"
	"motorent/internal/domain/shared/daterange"
	domainuser "motorent/internal/domain/user"
	domainvehicle "motorent/internal/domain/vehicle"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Get(c *gin.Context)
	MyBookings(c *gin.Context)
	HostBookings(c *gin.Context)
}

type BookingHandler struct {
	Creates  *bookingapp.CreateHandler
	Confirms *bookingapp.ConfirmHandler
	Cancels  *bookingapp.CancelHandler
	Queries  *bookingapp.QueryHandler
	Logger   *slog.Logger
}

type createBookingRequest struct {
	VehicleID     string    `json:"vehicle_id"`
	Pickup        time.Time `json:"pickup"`
	Dropoff       time.Time `json:"dropoff"`
	PaymentMethod string    `json:"payment_method"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Creates.Handle(c.Request.Context(), bookingapp.CreateParams{
		GuestID:       p.ID,
		VehicleID:     req.VehicleID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewBookingResponse(b))
}

func (h BookingHandler) Confirm(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	b, err := h.Confirms.Handle(c.Request.Context(), bookingapp.ConfirmParams{
		BookingID: domainbooking.ID(c.Param("id")),
		ActorID:   p.ID,
		ActorRole: p.Role,
	})
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBookingResponse(b))
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.Cancels.Handle(c.Request.Context(), bookingapp.CancelParams{
		BookingID: domainbooking.ID(c.Param("id")),
		ActorID:   p.ID,
		ActorRole: p.Role,
		Initiator: initiatorFor(p.Role),
		Reason:    req.Reason,
	})
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":            dto.NewBookingResponse(result.Booking),
		"refund_cents":       result.Outcome.RefundAmount.Amount,
		"refund_percent":     result.Outcome.RefundPercent,
		"host_payout_cents":  result.Outcome.HostPayout.Amount,
		"platform_fee_cents": result.Outcome.PlatformFee.Amount,
	})
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	b, err := h.Queries.ByID(c.Request.Context(), domainbooking.ID(c.Param("id")), p.ID, p.Role)
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBookingResponse(b))
}

func (h BookingHandler) MyBookings(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	bookings, err := h.Queries.ListForGuest(c.Request.Context(), p.ID)
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": dto.NewBookingList(bookings)})
}

func (h BookingHandler) HostBookings(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	bookings, err := h.Queries.ListForHost(c.Request.Context(), p.ID)
	if err != nil {
		h.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": dto.NewBookingList(bookings)})
}

// initiatorFor maps the authenticated role onto the cancellation initiator.
func initiatorFor(role domainuser.Role) domainbooking.Initiator {
	switch role {
	case domainuser.RoleHost:
		return domainbooking.InitiatorHost
	case domainuser.RoleAdmin:
		return domainbooking.InitiatorAdmin
	default:
		return domainbooking.InitiatorGuest
	}
}

func (h BookingHandler) respondBookingError(c *gin.Context, err error) {
	var (
		conflictErr *domainbooking.ConflictError
		stateErr    *domainbooking.StateError
		gatewayErr  *policies.GatewayError
	)
	switch {
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error(), "busy": conflictErr.Busy.String()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error(), "status": string(stateErr.Current)})
	case errors.Is(err, domainbooking.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "booking was modified concurrently, retry"})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": gatewayErr.Error()})
	case errors.Is(err, domainbooking.ErrNotFound), errors.Is(err, domainvehicle.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bookingapp.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrPickupInPast),
		errors.Is(err, daterange.ErrEmptyRange),
		errors.Is(err, daterange.ErrInvertedRange),
		errors.Is(err, domainvehicle.ErrInactive),
		errors.Is(err, bookingapp.ErrInvalidInitiator):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("booking operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ BookingHTTP = BookingHandler{}
