package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/drugs", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := func(c echo.Context) error {
		reached = true
		return c.String(http.StatusOK, "ok")
	}

	err := BodyLimit("32", "128")(handler)(c)
	if err == nil {
		t.Fatal("expected 413 for oversized body")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
	if reached {
		t.Error("handler must not run for an oversized body")
	}
}

func TestBodyLimit_UploadPathGetsLargerLimit(t *testing.T) {
	e := echo.New()
	body := strings.Repeat("x", 64)

	// Same payload size, same limits. The upload route accepts it.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := BodyLimit("32", "128")(handler)(c); err != nil {
		t.Fatalf("upload within the upload limit must pass, got %v", err)
	}

	// A GET to the same path stays on the default limit.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/pricing/import", strings.NewReader(body))
	c = e.NewContext(req, httptest.NewRecorder())
	if err := BodyLimit("32", "128")(handler)(c); err == nil {
		t.Error("non-POST requests must stay on the default limit")
	}
}

func TestBodyLimit_CapsReaderWithoutContentLength(t *testing.T) {
	e := echo.New()
	// An unrecognized reader type leaves ContentLength undeclared, so
	// the cap has to come from the wrapped body.
	body := struct{ io.Reader }{strings.NewReader(strings.Repeat("x", 64))}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/drugs", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.String(http.StatusOK, "ok")
	}

	err := BodyLimit("32", "128")(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from the capped reader, got %v", err)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/drugs", strings.NewReader("tiny"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		data, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, string(data))
	}

	if err := BodyLimit("32", "128")(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "tiny" {
		t.Errorf("body must pass through intact, got %q", rec.Body.String())
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1M", 1 << 20},
		{"20M", 20 << 20},
		{"512K", 512 << 10},
		{"2G", 2 << 30},
		{"10MB", 10 << 20},
		{"100", 100},
		{"", 1 << 20},
		{"garbage", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseSize(tt.in); got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
