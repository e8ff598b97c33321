package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/middleware"
	"github.com/iliyamo/table-reservation-service/internal/model"
	"github.com/iliyamo/table-reservation-service/internal/service"
)

// Reservations is the service surface the handlers call.  It is satisfied
// by *service.ReservationService.
type Reservations interface {
	ListByRestaurant(ctx context.Context, caller model.Caller, restaurantID uint64, status string) ([]model.DecoratedReservation, error)
	ListByUser(ctx context.Context, caller model.Caller) ([]model.DecoratedReservation, error)
	Create(ctx context.Context, caller model.Caller, in service.CreateInput) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, caller model.Caller, restaurantID, reservationID uint64, status string) (*model.Reservation, error)
	UpdateDetails(ctx context.Context, caller model.Caller, reservationID uint64, in service.DetailsInput) (*model.Reservation, error)
	Delete(ctx context.Context, caller model.Caller, reservationID uint64) error
}

// ReservationHandler serves /api/v1/reservations.  Every route expects
// middleware.Authorize to have run; a missing caller is answered with 401.
type ReservationHandler struct {
	svc Reservations
	log logrus.FieldLogger
}

// NewReservationHandler panics when svc is nil.
func NewReservationHandler(svc Reservations, log logrus.FieldLogger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: log}
}

type createReservationRequest struct {
	ReservationDate string `json:"reservation_date" validate:"required"`
	NumGuests       int    `json:"num_guests" validate:"required,min=1"`
}

// status is validated by the service after the ownership check, so a
// non-owner sees 403 whatever the body holds
type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateDetailsRequest struct {
	ReservationDate *string `json:"reservation_date"`
	NumGuests       *int    `json:"num_guests"`
}

// ListByRestaurant handles GET /restaurant/:restaurantId?status=pending.
func (h *ReservationHandler) ListByRestaurant(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	restaurantID, ok := pathID(c, "restaurantId")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	out, err := h.svc.ListByRestaurant(c.Request().Context(), caller, restaurantID, c.QueryParam("status"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByUser handles GET /user.
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.svc.ListByUser(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /restaurant/:restaurantId.  A status in the body is
// ignored; new reservations are always pending.
func (h *ReservationHandler) Create(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	restaurantID, ok := pathID(c, "restaurantId")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.svc.Create(c.Request().Context(), caller, service.CreateInput{
		RestaurantID:    restaurantID,
		ReservationDate: req.ReservationDate,
		NumGuests:       req.NumGuests,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// UpdateStatus handles PUT /restaurant/:restaurantId/:reservationId.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	restaurantID, ok := pathID(c, "restaurantId")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	reservationID, ok := pathID(c, "reservationId")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.UpdateStatus(c.Request().Context(), caller, restaurantID, reservationID, req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateDetails handles PUT /user/:reservationId.
func (h *ReservationHandler) UpdateDetails(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	reservationID, ok := pathID(c, "reservationId")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req updateDetailsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.UpdateDetails(c.Request().Context(), caller, reservationID, service.DetailsInput{
		ReservationDate: req.ReservationDate,
		NumGuests:       req.NumGuests,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /user/:reservationId.
func (h *ReservationHandler) Delete(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	reservationID, ok := pathID(c, "reservationId")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.svc.Delete(c.Request().Context(), caller, reservationID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReservationHandler) fail(c echo.Context, err error) error {
	info := reservationErrors.Map(err)
	if info.Status >= 500 && h.log != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
		}).Error("reservation request failed")
	}
	return c.JSON(info.Status, echo.Map{"error": info.Message})
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
