package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"cinema-tickets/pkg/utils"

	"go.uber.org/zap"
)

// Client talks to the payment gateway over HTTP. Amounts cross the wire in
// minor units (euro cents).
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *zap.Logger
}

const currency = "eur"

func NewClient(cfg utils.GatewayConfig, log *zap.Logger) *Client {
	if cfg.SecretKey == "" {
		log.Warn("Gateway secret key not configured, gateway payments will not work")
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With(zap.String("component", "gateway")),
	}
}

func (c *Client) configured() bool {
	return c.baseURL != "" && c.secretKey != ""
}

type holdRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ReceiptEmail string `json:"receipt_email,omitempty"`
	Description  string `json:"description,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
}

type holdResponse struct {
	HoldID         string `json:"hold_id"`
	ClientSecret   string `json:"client_secret"`
	Status         string `json:"status"`
	AmountCaptured int64  `json:"amount_captured"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

func (c *Client) OpenHold(ctx context.Context, amount float64, customer CustomerMetadata) (*Hold, error) {
	if !c.configured() {
		return nil, ErrUnavailable
	}

	req := holdRequest{
		Amount:       toCents(amount),
		Currency:     currency,
		ReceiptEmail: customer.Email,
		Description:  fmt.Sprintf("Movie booking for %s", customer.Name),
		CustomerName: customer.Name,
		OrderID:      customer.OrderID,
	}

	var resp holdResponse
	if err := c.post(ctx, "/v1/holds", req, &resp); err != nil {
		return nil, err
	}

	c.log.Info("Payment hold opened",
		zap.String("hold_id", resp.HoldID),
		zap.String("order_id", customer.OrderID),
		zap.Float64("amount", amount),
	)

	return &Hold{
		HoldID:       resp.HoldID,
		ClientSecret: resp.ClientSecret,
		Status:       resp.Status,
	}, nil
}

func (c *Client) GetHoldStatus(ctx context.Context, holdID string) (*HoldStatus, error) {
	if !c.configured() {
		return nil, ErrUnavailable
	}

	var resp holdResponse
	if err := c.get(ctx, "/v1/holds/"+holdID, &resp); err != nil {
		return nil, err
	}

	return &HoldStatus{
		HoldID:         resp.HoldID,
		Status:         resp.Status,
		AmountCaptured: fromCents(resp.AmountCaptured),
	}, nil
}

func (c *Client) Refund(ctx context.Context, transactionID string) (*RefundResult, error) {
	if !c.configured() {
		return nil, ErrUnavailable
	}

	// A hold whose charge never succeeded cannot be refunded; cancel it
	// instead so the customer is never charged.
	status, err := c.GetHoldStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if status.Status != HoldStatusSucceeded {
		c.log.Info("Hold not yet succeeded, cancelling instead of refunding",
			zap.String("hold_id", transactionID),
			zap.String("status", status.Status),
		)

		var resp holdResponse
		if err := c.post(ctx, "/v1/holds/"+transactionID+"/cancel", struct{}{}, &resp); err != nil {
			return nil, err
		}
		return &RefundResult{RefundID: resp.HoldID, Status: HoldStatusCancelled}, nil
	}

	var resp refundResponse
	if err := c.post(ctx, "/v1/refunds", refundRequest{TransactionID: transactionID}, &resp); err != nil {
		return nil, err
	}

	c.log.Info("Refund created",
		zap.String("refund_id", resp.RefundID),
		zap.String("transaction_id", transactionID),
	)

	return &RefundResult{RefundID: resp.RefundID, Status: resp.Status}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are collaborator failures.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("gateway rejected request: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	return nil
}
