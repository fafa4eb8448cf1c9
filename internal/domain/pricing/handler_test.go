package pricing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_UpdateCashPrice(t *testing.T) {
	f := newFixture()
	item := f.drugs.add("DRG-001", "Paracetamol", "analgesic", 10)
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"price": 25.5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	c.SetParamNames("type", "id")
	c.SetParamValues("drug", item.ID.String())

	if err := h.UpdateCashPrice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", res.Code)
	}
	if item.CashPrice != 25.5 {
		t.Errorf("expected 25.5, got %.2f", item.CashPrice)
	}
}

func TestHandler_UpdateCashPrice_InvalidPrice(t *testing.T) {
	f := newFixture()
	item := f.drugs.add("DRG-001", "Paracetamol", "analgesic", 10)
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"price": -1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	c.SetParamNames("type", "id")
	c.SetParamValues("drug", item.ID.String())

	err := h.UpdateCashPrice(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if item.CashPrice != 10 {
		t.Error("price must be untouched after a rejected request")
	}
}

func TestHandler_GetPricingData(t *testing.T) {
	f := newFixture()
	f.drugs.add("DRG-001", "Paracetamol", "analgesic", 10)
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?search=para", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)

	if err := h.GetPricingData(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "DRG-001") {
		t.Error("expected matching item in response")
	}
}

func TestHandler_GetPricingData_UnknownPlan(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?plan_id=0b0bc09e-4d4e-4a0a-8a6d-111111111111", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)

	err := h.GetPricingData(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_Export(t *testing.T) {
	f := newFixture()
	f.drugs.add("DRG-001", "Paracetamol", "analgesic", 10)
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)

	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Body.String(), "Code,Name,Category,Cash Price") {
		t.Errorf("unexpected export body %q", res.Body.String())
	}
}

func TestHandler_BulkUpdateCopay_EmptyBatch(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items": [], "copay": 5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	c.SetParamNames("planId")
	c.SetParamValues(f.nhisPlan.String())

	err := h.BulkUpdateCopay(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
