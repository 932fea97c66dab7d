package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/dto/request"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/internal/usecase"
	"cinema-tickets/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service *usecase.Service
	log     *zap.Logger
}

func NewBookingHandler(service *usecase.Service, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// actor reads the acting principal stamped by the identity middleware.
// Requests without a principal act as guests.
func actor(r *http.Request) usecase.Actor {
	a := usecase.Actor{Admin: utils.IsAdminFromContext(r.Context())}
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		a.UserID = userID.String()
	}
	return a
}

// OpenHold handles POST /api/booking/hold
func (h *BookingHandler) OpenHold(w http.ResponseWriter, r *http.Request) {
	var req request.OpenHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	hold, err := h.service.Settlement.OpenHold(r.Context(), actor(r).UserID, &req)
	if err != nil {
		h.handleServiceError(w, err, "open hold")
		return
	}

	utils.ResponseCreated(w, "success", hold)
}

// ConfirmHold handles POST /api/booking/confirm
func (h *BookingHandler) ConfirmHold(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.Settlement.ConfirmHold(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "confirm hold")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CreateBooking handles POST /api/booking (legacy non-gateway path)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.Settlement.CreateBooking(r.Context(), actor(r).UserID, &req)
	if err != nil {
		h.handleServiceError(w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// CancelBooking handles PUT /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	booking, err := h.service.Cancellation.CancelBooking(r.Context(), actor(r), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetBookingByID handles GET /api/bookings/{id}
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	booking, err := h.service.Booking.GetBookingByID(r.Context(), actor(r), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get booking by ID")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetUserBookings handles GET /api/user/bookings (requires a principal)
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.service.Booking.GetUserBookings(r.Context(), userID.String(), page)
	if err != nil {
		h.handleServiceError(w, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// handleServiceError maps domain errors onto HTTP statuses. Conflicts are 409
// so clients can distinguish a lost race from a bad request.
func (h *BookingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, entity.ErrShowtimeNotFound),
		errors.Is(err, entity.ErrBookingNotFound),
		errors.Is(err, entity.ErrPendingBookingNotFound):
		h.log.Warn(operation+" failed, not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, entity.ErrInsufficientSeats),
		errors.Is(err, entity.ErrHoldExpired),
		errors.Is(err, entity.ErrAlreadyCancelled),
		errors.Is(err, entity.ErrInvalidStateTransition),
		errors.Is(err, entity.ErrPaymentNotSuccessful):
		h.log.Warn(operation+" failed, conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, entity.ErrPriceMismatch):
		h.log.Warn(operation+" failed, price mismatch", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, entity.ErrNotBookingOwner):
		h.log.Warn(operation+" failed, forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, gateway.ErrUnavailable):
		h.log.Error(operation+" failed, gateway unavailable", zap.Error(err))
		utils.ResponseBadGateway(w, "Payment gateway unavailable")

	case strings.HasPrefix(err.Error(), "invalid "),
		strings.HasPrefix(err.Error(), "validation failed"):
		h.log.Warn(operation+" failed, invalid input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
