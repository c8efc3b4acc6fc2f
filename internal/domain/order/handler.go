package order

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/metimat/metimat/internal/domain/prescription"
	"github.com/metimat/metimat/internal/platform/auth"
	"github.com/metimat/metimat/pkg/pagination"
)

// MachineTokenHeader carries the vending machine's shared secret on the
// validate and complete endpoints.
const MachineTokenHeader = "X-Machine-Token"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the user-facing order API on api (behind user auth)
// and the vending-machine endpoints on machine, which carries no user auth:
// machines authenticate per request with X-Machine-Token.
func (h *Handler) RegisterRoutes(api, machine *echo.Group) {
	api.POST("/orders", h.Create)
	api.GET("/orders", h.List)
	api.GET("/orders/:id", h.Get)
	api.DELETE("/orders/:id", h.Delete)
	// Clients disagree on the verb for status writes; accept both.
	api.PUT("/orders/:id", h.UpdateStatus)
	api.PATCH("/orders/:id", h.UpdateStatus)

	machine.POST("/orders/validate-qr", h.ValidateQR)
	machine.POST("/orders/:id/complete", h.Complete)
}

func (h *Handler) Create(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Create(c.Request().Context(), user, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) List(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), user, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), user, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Delete(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), user, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateStatus(c.Request().Context(), user, id, req.Status)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

// The machine posts the raw content of the scanned QR code, which is the
// order's access token.
type validateQRRequest struct {
	QRData string `json:"qr_data"`
}

func (h *Handler) ValidateQR(c echo.Context) error {
	var req validateQRRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.ValidateQR(c.Request().Context(), c.Request().Header.Get(MachineTokenHeader), req.QRData)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	o, err := h.svc.Complete(c.Request().Context(), c.Request().Header.Get(MachineTokenHeader), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func mapError(err error) error {
	var rxRequired *PrescriptionRequiredError
	var medMissing *MedicationNotFoundError
	var badTransition *InvalidTransitionError

	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusBadRequest, ErrForbidden.Error())
	case errors.Is(err, ErrMachineUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrMachineUnauthorized.Error())
	case errors.Is(err, ErrLocationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrLocationNotFound.Error())
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, prescription.ErrAlreadyLinked),
		errors.Is(err, prescription.ErrConsumed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, prescription.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &rxRequired), errors.As(err, &badTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &medMissing):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
