package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvert(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/v6/latest/USD":
			_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":1,"EUR":0.5}}`))
		default:
			_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
		}
	}))
	defer srv.Close()

	c := New()
	c.BaseURL = srv.URL

	got, rate, err := c.Convert(context.Background(), 100, "usd", "eur")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != 50 || rate != 0.5 {
		t.Fatalf("got %v at %v", got, rate)
	}
	if _, _, err := c.Convert(context.Background(), 1, "USD", "XYZ"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("want ErrUnknownCurrency for target, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("want cached table, calls = %d", calls)
	}
	if _, _, err := c.Convert(context.Background(), 1, "ABC", "USD"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("want ErrUnknownCurrency for base, got %v", err)
	}
}
