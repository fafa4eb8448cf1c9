package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *mockStore) {
	reg, drugs, _, _, _ := newTestRegistry()
	return NewHandler(reg), echo.New(), drugs
}

func TestHandler_CreateItem(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"code":"DRG-001","name":"Paracetamol","category":"analgesic","cash_price":10.5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("drug")

	if err := h.CreateItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateItem_InvalidType(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"code":"X","name":"X","cash_price":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("xray")

	if err := h.CreateItem(c); err == nil {
		t.Error("expected error for invalid item type")
	}
}

func TestHandler_CreateItem_MissingCode(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"name":"Paracetamol","cash_price":10}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("drug")

	if err := h.CreateItem(c); err == nil {
		t.Error("expected error for missing code")
	}
}

func TestHandler_GetItem(t *testing.T) {
	h, e, drugs := newTestHandler()
	item := drugs.add("DRG-001", "Paracetamol", 10)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type", "id")
	c.SetParamValues("drug", item.ID.String())

	if err := h.GetItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetItem_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type", "id")
	c.SetParamValues("drug", uuid.New().String())

	err := h.GetItem(c)
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetByCode(t *testing.T) {
	h, e, drugs := newTestHandler()
	drugs.add("DRG-001", "Paracetamol", 10)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("DRG-001")

	if err := h.GetByCode(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
