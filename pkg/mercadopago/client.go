package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/config"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

var (
	errAccessTokenRequired = errors.New("mercadopago access token is required")
	errLoggerRequired      = errors.New("mercadopago logger is required")
	errPaymentIDRequired   = errors.New("payment id is required")
)

// Payment is the subset of the Mercado Pago payment resource the settlement
// pipeline acts on.
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	PaymentMethodID   string          `json:"payment_method_id"`
	PaymentTypeID     string          `json:"payment_type_id"`
	DateApproved      *time.Time      `json:"date_approved"`
}

// Client looks up payments on the Mercado Pago REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	retries     int
	logger      *logger.Logger
}

// NewClient initializes the Mercado Pago wrapper and validates the credentials.
func NewClient(cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	retries := cfg.LookupRetries
	if retries < 1 {
		retries = 1
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.LookupTimeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: accessToken,
		retries:     retries,
		logger:      logg,
	}, nil
}

// GetPayment fetches a payment by its provider id. Transient provider
// failures are retried up to the configured attempt count.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errPaymentIDRequired, "mercadopago get payment failed")
	}

	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		payment, retryable, err := c.fetchPayment(ctx, url)
		if err == nil {
			return payment, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn(c.logger.WithFields(ctx, map[string]any{
			"payment_id": paymentID,
			"attempt":    attempt,
		}), "mercadopago payment lookup failed, retrying")

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "mercadopago get payment cancelled")
			case <-time.After(backoffDelay(attempt)):
			}
		}
	}
	return nil, lastErr
}

func (c *Client) fetchPayment(ctx context.Context, url string) (*Payment, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mercadopago build request failed")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago read response failed")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var payment Payment
		if err := json.Unmarshal(body, &payment); err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago decode payment failed")
		}
		return &payment, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "mercadopago payment not found")
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "mercadopago credentials rejected")
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("mercadopago returned status %d", resp.StatusCode))
	default:
		return nil, false, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("mercadopago returned status %d", resp.StatusCode))
	}
}

func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(attempt) * 500 * time.Millisecond
	if delay > 5*time.Second {
		delay = 5 * time.Second
	}
	return delay
}
