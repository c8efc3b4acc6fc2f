package prescription

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/metimat/metimat/internal/platform/auth"
	"github.com/metimat/metimat/pkg/pagination"
)

type Handler struct {
	svc *Service
	// mockImportsEnabled gates the import endpoints that synthesize bundles
	// instead of talking to the Telematics Infrastructure.
	mockImportsEnabled bool
}

func NewHandler(svc *Service, mockImportsEnabled bool) *Handler {
	return &Handler{svc: svc, mockImportsEnabled: mockImportsEnabled}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/prescriptions", h.List)
	api.GET("/prescriptions/:id", h.Get)
	api.DELETE("/prescriptions/:id", h.Delete)
	api.POST("/prescriptions/import/egk", h.ImportEGK)
	api.POST("/prescriptions/import/scan", h.ImportScan)
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
	p, err := h.svc.Get(c.Request().Context(), user, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
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

func (h *Handler) ImportEGK(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !h.mockImportsEnabled {
		return echo.NewHTTPError(http.StatusNotImplemented, "prescription import is not available")
	}
	items, err := h.svc.ImportFromEGK(c.Request().Context(), user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, items)
}

type scanRequest struct {
	QRContent string `json:"qr_content"`
}

func (h *Handler) ImportScan(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !h.mockImportsEnabled {
		return echo.NewHTTPError(http.StatusNotImplemented, "prescription import is not available")
	}
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, result, err := h.svc.ImportFromScan(c.Request().Context(), user, req.QRContent)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !result.Valid {
		return c.JSON(http.StatusBadRequest, result)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"scan":         result,
		"prescription": p,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusBadRequest, "Not enough permissions")
	case errors.Is(err, ErrAlreadyLinked):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
