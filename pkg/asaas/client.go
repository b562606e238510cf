package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/config"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("asaas api key is required")
	errLoggerRequired = errors.New("asaas logger is required")
)

// FailureCategory classifies a rejected transfer so callers can decide
// whether the order funds go back to the pool or to manual review.
type FailureCategory string

const (
	FailureInvalidKey          FailureCategory = "invalid_key"
	FailureInsufficientBalance FailureCategory = "insufficient_balance"
	FailureDailyLimit          FailureCategory = "daily_limit"
	FailureInvalidAmount       FailureCategory = "invalid_amount"
	FailureUnknown             FailureCategory = "unknown"
)

// TransferError is a typed rejection from the Asaas transfer endpoint.
type TransferError struct {
	Category    FailureCategory
	Code        string
	Description string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("asaas transfer rejected (%s): %s", e.Category, e.Description)
}

// CategoryOf extracts the failure category from an error chain, or
// FailureUnknown when the error is not a transfer rejection.
func CategoryOf(err error) FailureCategory {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Category
	}
	return FailureUnknown
}

// TransferParams describes one outbound PIX transfer.
type TransferParams struct {
	Value             decimal.Decimal
	PixKey            string
	PixKeyType        enums.PixKeyType
	Description       string
	ExternalReference string
}

// TransferResult is the provider acknowledgement for a created transfer.
type TransferResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client executes PIX transfers against the Asaas REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

// NewClient initializes the Asaas wrapper and validates the credentials.
func NewClient(cfg config.AsaasConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.TransferTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     apiKey,
		logger:     logg,
	}, nil
}

type transferRequest struct {
	Value             decimal.Decimal `json:"value"`
	PixAddressKey     string          `json:"pixAddressKey"`
	PixAddressKeyType string          `json:"pixAddressKeyType"`
	Description       string          `json:"description,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
}

type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// CreatePixTransfer submits one consolidated transfer for a producer batch.
func (c *Client) CreatePixTransfer(ctx context.Context, params TransferParams) (*TransferResult, error) {
	if params.PixKey == "" || !params.PixKeyType.IsValid() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation,
			&TransferError{Category: FailureInvalidKey, Description: "pix key or key type missing"},
			"asaas create transfer failed")
	}
	if !params.Value.IsPositive() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation,
			&TransferError{Category: FailureInvalidAmount, Description: "transfer value must be positive"},
			"asaas create transfer failed")
	}

	payload := transferRequest{
		Value:             params.Value,
		PixAddressKey:     params.PixKey,
		PixAddressKeyType: providerKeyType(params.PixKeyType),
		Description:       params.Description,
		ExternalReference: params.ExternalReference,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "asaas encode transfer failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "asaas build request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "asaas request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "asaas read response failed")
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var result TransferResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "asaas decode transfer failed")
		}
		c.logger.Info(c.logger.WithFields(ctx, map[string]any{
			"transfer_id": result.ID,
			"status":      result.Status,
		}), "asaas transfer created")
		return &result, nil
	}

	return nil, c.mapRejection(resp.StatusCode, raw)
}

func (c *Client) mapRejection(status int, raw []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "asaas credentials rejected")
	}
	if status >= 500 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("asaas returned status %d", status))
	}

	var parsed errorResponse
	_ = json.Unmarshal(raw, &parsed)

	te := &TransferError{Category: FailureUnknown, Description: fmt.Sprintf("asaas returned status %d", status)}
	if len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		te.Code = first.Code
		te.Description = first.Description
		te.Category = categorize(first.Code, first.Description)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, te, "asaas create transfer failed")
}

func categorize(code, description string) FailureCategory {
	hint := strings.ToLower(code + " " + description)
	switch {
	case strings.Contains(hint, "pix") && strings.Contains(hint, "key"),
		strings.Contains(hint, "invalid_pix"), strings.Contains(hint, "chave"):
		return FailureInvalidKey
	case strings.Contains(hint, "balance"), strings.Contains(hint, "saldo"):
		return FailureInsufficientBalance
	case strings.Contains(hint, "limit"), strings.Contains(hint, "limite"):
		return FailureDailyLimit
	case strings.Contains(hint, "value"), strings.Contains(hint, "amount"), strings.Contains(hint, "valor"):
		return FailureInvalidAmount
	default:
		return FailureUnknown
	}
}

func providerKeyType(kt enums.PixKeyType) string {
	if kt == enums.PixKeyTypeRandom {
		return "EVP"
	}
	return strings.ToUpper(kt.String())
}
