package prescription

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/metimat/metimat/internal/platform/auth"
)

func setupHandler(t *testing.T, repo Repository, mockImports bool) *echo.Echo {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	NewHandler(NewService(repo, nil), mockImports).RegisterRoutes(api)
	return e
}

func TestHandlerImportEGK(t *testing.T) {
	e := setupHandler(t, newMockRepo(), true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions/import/egk", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "MedicationRequest") {
		t.Fatalf("expected FHIR bundle in response: %s", rec.Body.String())
	}
}

func TestHandlerImportDisabled(t *testing.T) {
	e := setupHandler(t, newMockRepo(), false)

	for _, path := range []string{"/api/v1/prescriptions/import/egk", "/api/v1/prescriptions/import/scan"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"qr_content":"0123456789abc"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s: status = %d, want 501", path, rec.Code)
		}
	}
}

func TestHandlerImportScanInvalidQR(t *testing.T) {
	e := setupHandler(t, newMockRepo(), true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions/import/scan", strings.NewReader(`{"qr_content":"short"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid QR format") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	e := setupHandler(t, newMockRepo(), true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/0d9a31c4-2f7b-4a52-a81e-9e1a2b3c4d5e", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
