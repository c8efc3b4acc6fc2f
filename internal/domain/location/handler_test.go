package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/metimat/metimat/internal/platform/auth"
)

func setupHandler(t *testing.T, repo Repository) *echo.Echo {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return e
}

func TestHandlerGetHidesValidationKey(t *testing.T) {
	repo := newMockRepo()
	loc := &Location{Name: "Automat Hbf", Address: "Bahnhofsplatz 1", IsActive: true, ValidationKey: strptr("machine-secret")}
	repo.Create(context.Background(), loc)
	e := setupHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/"+loc.ID.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "machine-secret") || strings.Contains(rec.Body.String(), "validation_key") {
		t.Fatalf("validation key leaked: %s", rec.Body.String())
	}
}

func TestHandlerSetInventory(t *testing.T) {
	repo := newMockRepo()
	loc := &Location{Name: "Automat Hbf", Address: "Bahnhofsplatz 1", IsActive: true}
	repo.Create(context.Background(), loc)
	e := setupHandler(t, repo)

	body := `{"medication_id":"5a0c2b49-9a4a-4a63-a6d9-0a4c6c1d2e3f","quantity":7}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/locations/"+loc.ID.String()+"/inventory", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	items, _ := repo.ListInventory(context.Background(), loc.ID)
	if len(items) != 1 || items[0].Quantity != 7 {
		t.Fatalf("inventory not stored: %+v", items)
	}
}
