package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func setupHandler(t *testing.T, f *fixture) *echo.Echo {
	t.Helper()
	e := echo.New()
	userAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", f.user.UserID)
			c.Set("user_email", f.user.Email)
			c.Set("is_superuser", false)
			return next(c)
		}
	}
	api := e.Group("/api/v1", userAuth)
	machine := e.Group("/api/v1")
	NewHandler(f.svc).RegisterRoutes(api, machine)
	return e
}

func TestHandlerCreateOrder(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)

	body := `{"location_id":"` + f.loc.ID.String() + `","medication_ids":["` + f.otc.ID.String() + `","` + f.otc.ID.String() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var o Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 {
		t.Fatalf("items = %+v, want single coalesced line", o.Items)
	}
	if o.Status != StatusPending {
		t.Fatalf("status = %q, want pending", o.Status)
	}
}

func TestHandlerCreatePrescriptionRequired(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)

	body := `{"location_id":"` + f.loc.ID.String() + `","medication_ids":["` + f.rxOnly.ID.String() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), f.rxOnly.Name) {
		t.Fatalf("error must name the medication: %s", rec.Body.String())
	}
}

func TestHandlerStatusUpdateByOwner(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)
	o := createOrder(t, f)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+o.ID.String(),
		strings.NewReader(`{"status":"cancelled"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(StatusCancelled)) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandlerStatusUpdateForeignOrder(t *testing.T) {
	f := newFixture(t)
	o := createOrder(t, f)

	e := echo.New()
	otherAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uuid.New())
			c.Set("is_superuser", false)
			return next(c)
		}
	}
	api := e.Group("/api/v1", otherAuth)
	machine := e.Group("/api/v1")
	NewHandler(f.svc).RegisterRoutes(api, machine)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+o.ID.String(),
		strings.NewReader(`{"status":"cancelled"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not enough permissions") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandlerValidateQRWithoutUserAuth(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)
	o := createOrder(t, f)
	f.svc.UpdateStatus(context.Background(), f.user, o.ID, StatusAvailableForPickup)

	body := `{"qr_data":"` + o.AccessToken + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/validate-qr", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(MachineTokenHeader, f.machine)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Valid || res.Order == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestHandlerValidateQRGenericMessage(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/validate-qr",
		strings.NewReader(`{"qr_data":"no-such-token"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(MachineTokenHeader, f.machine)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Order not found or invalid token") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandlerValidateQRWrongMachineKey(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)
	o := createOrder(t, f)
	f.svc.UpdateStatus(context.Background(), f.user, o.ID, StatusAvailableForPickup)

	body := `{"qr_data":"` + o.AccessToken + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/validate-qr", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(MachineTokenHeader, "wrong-key")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandlerComplete(t *testing.T) {
	f := newFixture(t)
	e := setupHandler(t, f)
	o := createOrder(t, f)
	f.svc.UpdateStatus(context.Background(), f.user, o.ID, StatusAvailableForPickup)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/complete", nil)
	req.Header.Set(MachineTokenHeader, f.machine)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Unknown order id is a 404, wrong machine key a 401.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.New().String()+"/complete", nil)
	req.Header.Set(MachineTokenHeader, f.machine)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown order status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/complete", nil)
	req.Header.Set(MachineTokenHeader, "wrong-key")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", rec.Code)
	}
}

func TestHandlerGetForeignOrder(t *testing.T) {
	f := newFixture(t)
	o := createOrder(t, f)

	// A different authenticated user hits the same service.
	e := echo.New()
	otherAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uuid.New())
			c.Set("is_superuser", false)
			return next(c)
		}
	}
	api := e.Group("/api/v1", otherAuth)
	machine := e.Group("/api/v1")
	NewHandler(f.svc).RegisterRoutes(api, machine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("foreign order status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.New().String(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", rec.Code)
	}
}
