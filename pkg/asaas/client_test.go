package asaas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/config"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.AsaasConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		TransferTimeout: 2 * time.Second,
	}, logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCreatePixTransferSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfers" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("access_token"); got != "test-key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["pixAddressKeyType"] != "EVP" {
			t.Fatalf("expected EVP key type, got %v", body["pixAddressKeyType"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "tra_000001", "status": "PENDING"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.CreatePixTransfer(context.Background(), TransferParams{
		Value:      decimal.RequireFromString("97.00"),
		PixKey:     "b5e0a1c8-1df2-4f4a-8f3a-0f0d6a6c0001",
		PixKeyType: enums.PixKeyTypeRandom,
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if result.ID != "tra_000001" {
		t.Fatalf("unexpected transfer id %q", result.ID)
	}
}

func TestCreatePixTransferRejectionCategories(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		desc     string
		category FailureCategory
	}{
		{"invalid key", "invalid_pix_key", "A chave Pix informada e invalida.", FailureInvalidKey},
		{"insufficient balance", "insufficient_balance", "Saldo insuficiente.", FailureInsufficientBalance},
		{"daily limit", "transfer_limit", "Limite diario excedido.", FailureDailyLimit},
		{"invalid amount", "invalid_value", "O valor informado e invalido.", FailureInvalidAmount},
		{"unmapped", "weird_code", "something else entirely", FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"errors": []map[string]string{{"code": tt.code, "description": tt.desc}},
				})
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			_, err := c.CreatePixTransfer(context.Background(), TransferParams{
				Value:      decimal.RequireFromString("10.00"),
				PixKey:     "producer@example.com",
				PixKeyType: enums.PixKeyTypeEmail,
			})
			if err == nil {
				t.Fatal("expected rejection")
			}
			if got := CategoryOf(err); got != tt.category {
				t.Fatalf("expected category %s, got %s", tt.category, got)
			}
		})
	}
}

func TestCreatePixTransferValidatesInput(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")

	_, err := c.CreatePixTransfer(context.Background(), TransferParams{
		Value:  decimal.RequireFromString("10.00"),
		PixKey: "",
	})
	if CategoryOf(err) != FailureInvalidKey {
		t.Fatalf("expected invalid_key, got %v", err)
	}

	_, err = c.CreatePixTransfer(context.Background(), TransferParams{
		Value:      decimal.Zero,
		PixKey:     "11122233344",
		PixKeyType: enums.PixKeyTypeCPF,
	})
	if CategoryOf(err) != FailureInvalidAmount {
		t.Fatalf("expected invalid_amount, got %v", err)
	}
}

func TestProviderKeyType(t *testing.T) {
	if got := providerKeyType(enums.PixKeyTypeCPF); got != "CPF" {
		t.Fatalf("expected CPF, got %q", got)
	}
	if got := providerKeyType(enums.PixKeyTypeRandom); got != "EVP" {
		t.Fatalf("expected EVP, got %q", got)
	}
}
