package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestMethodRegistry_DispatchesRegisteredMethod(t *testing.T) {
	e := echo.New()
	registry := NewMethodRegistry()

	called := false
	registry.Register("testConnection", func(c echo.Context) error {
		called = true
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/method/testConnection", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/method/:name")
	c.SetParamNames("name")
	c.SetParamValues("testConnection")

	if err := registry.Dispatch(c); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}
	if !called {
		t.Fatalf("registered method not invoked")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMethodRegistry_UnknownMethod(t *testing.T) {
	e := echo.New()
	registry := NewMethodRegistry()

	req := httptest.NewRequest(http.MethodPost, "/api/method/ghost", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/method/:name")
	c.SetParamNames("name")
	c.SetParamValues("ghost")

	err := registry.Dispatch(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", he.Code)
	}
	if he.Message != "method-not-found" {
		t.Fatalf("expected method-not-found, got %v", he.Message)
	}
}

func TestMethodRegistry_DuplicateRegistrationPanics(t *testing.T) {
	registry := NewMethodRegistry()
	registry.Register("login", func(echo.Context) error { return nil })

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	registry.Register("login", func(echo.Context) error { return nil })
}

func TestMethodRegistry_NamesSorted(t *testing.T) {
	registry := NewMethodRegistry()
	registry.Register("testDatabase", func(echo.Context) error { return nil })
	registry.Register("login", func(echo.Context) error { return nil })
	registry.Register("accounts.login", func(echo.Context) error { return nil })

	names := registry.Names()
	want := []string{"accounts.login", "login", "testDatabase"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
