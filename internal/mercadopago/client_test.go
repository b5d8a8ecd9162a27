package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/payments"
)

func TestCreatePreference(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer TEST-token" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Idempotency-Key") == "" {
			t.Error("missing idempotency key")
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &got); err != nil {
			t.Errorf("body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"123-pref","init_point":"https://mp.example/init/123"}`))
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:         srv.URL + "/",
		AccessToken:     "TEST-token",
		FrontendURL:     "https://shop.example/",
		NotificationURL: "https://api.example/api/webhooks/mercadopago",
	})
	expires := time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC)
	pref, err := c.CreatePreference(context.Background(), payments.PreferenceRequest{
		ExternalReference: "order-1",
		Items:             []payments.PreferenceItem{{ID: "p1", Title: "Dipirona", Quantity: 2, UnitPrice: decimal.RequireFromString("10.5")}},
		Payer:             payments.Payer{Name: "Ana", Email: "ana@example.com"},
		ExpiresAt:         expires,
	})
	if err != nil {
		t.Fatal(err)
	}
	if pref.ID != "123-pref" || pref.RedirectURL != "https://mp.example/init/123" {
		t.Fatalf("pref = %+v", pref)
	}

	if got["external_reference"] != "order-1" || got["statement_descriptor"] != "CLUBEPHARMA" || got["auto_return"] != "approved" {
		t.Fatalf("body = %v", got)
	}
	if got["expiration_date_to"] != "2025-03-02T15:00:00Z" || got["expires"] != true {
		t.Fatalf("expiry = %v / %v", got["expiration_date_to"], got["expires"])
	}
	back := got["back_urls"].(map[string]any)
	if back["success"] != "https://shop.example/payment/success" {
		t.Fatalf("back_urls = %v", back)
	}
	item := got["items"].([]any)[0].(map[string]any)
	if item["unit_price"] != 10.5 || item["currency_id"] != "BRL" || item["quantity"] != float64(2) {
		t.Fatalf("item = %v", item)
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/987" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":987,"status":"approved","external_reference":"order-1"}`))
	}))
	defer srv.Close()

	gp, err := New(Config{BaseURL: srv.URL, AccessToken: "t"}).GetPayment(context.Background(), "987")
	if err != nil {
		t.Fatal(err)
	}
	if gp.ID != "987" || gp.Status != "approved" || gp.ExternalReference != "order-1" {
		t.Fatalf("payment = %+v", gp)
	}
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/payments/") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"error":"not_found","message":"Payment not found"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, AccessToken: "t"})

	_, err := c.GetPayment(context.Background(), "1")
	if err == nil || !strings.Contains(err.Error(), "404 not_found: Payment not found") {
		t.Fatalf("err = %v", err)
	}
	_, err = c.CreatePreference(context.Background(), payments.PreferenceRequest{ExternalReference: "o"})
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("err = %v", err)
	}
}
