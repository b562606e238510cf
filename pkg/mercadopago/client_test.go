package mercadopago

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeplay/lumeplay-backend/pkg/config"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := NewClient(config.MercadoPagoConfig{
		AccessToken:   "test-token",
		BaseURL:       baseURL,
		LookupTimeout: 2 * time.Second,
		LookupRetries: retries,
	}, logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGetPaymentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/12345" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 12345,
			"status": "approved",
			"status_detail": "accredited",
			"external_reference": "9f0c6f1e-52c1-4d0b-9d8e-3b8c1a1f0001",
			"transaction_amount": 100.00,
			"payment_method_id": "pix"
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	payment, err := c.GetPayment(context.Background(), "12345")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.Status != "approved" {
		t.Fatalf("expected approved, got %q", payment.Status)
	}
	if payment.ExternalReference != "9f0c6f1e-52c1-4d0b-9d8e-3b8c1a1f0001" {
		t.Fatalf("unexpected external reference %q", payment.ExternalReference)
	}
	if payment.TransactionAmount.StringFixed(2) != "100.00" {
		t.Fatalf("unexpected amount %s", payment.TransactionAmount)
	}
}

func TestGetPaymentNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.GetPayment(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single attempt, got %d", got)
	}
}

func TestGetPaymentRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "status": "pending"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	payment, err := c.GetPayment(context.Background(), "7")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.Status != "pending" {
		t.Fatalf("expected pending, got %q", payment.Status)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNewClientRequiresAccessToken(t *testing.T) {
	_, err := NewClient(config.MercadoPagoConfig{}, logger.New(logger.Options{Output: io.Discard}))
	if err == nil {
		t.Fatal("expected error for missing access token")
	}
}
