// Package waafi charges mobile wallets through the WaafiPay API_PURCHASE
// service.
package waafi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway"
	"github.com/google/uuid"
)

const (
	// ApprovedCode is the only response code that means the debit went through.
	ApprovedCode = "2001"

	defaultRejectMsg = "Payment failed"
	maxResponseBytes = 1 << 20
)

type purchaseRequest struct {
	SchemaVersion string        `json:"schemaVersion"`
	RequestID     string        `json:"requestId"`
	Timestamp     string        `json:"timestamp"`
	ChannelName   string        `json:"channelName"`
	ServiceName   string        `json:"serviceName"`
	ServiceParams serviceParams `json:"serviceParams"`
}

type serviceParams struct {
	MerchantUID     string          `json:"merchantUid"`
	APIUserID       string          `json:"apiUserId"`
	APIKey          string          `json:"apiKey"`
	PaymentMethod   string          `json:"paymentMethod"`
	PayerInfo       payerInfo       `json:"payerInfo"`
	TransactionInfo transactionInfo `json:"transactionInfo"`
}

type payerInfo struct {
	AccountNo string `json:"accountNo"`
}

type transactionInfo struct {
	ReferenceID string  `json:"referenceId"`
	InvoiceID   string  `json:"invoiceId"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

type purchaseResponse struct {
	ResponseCode string          `json:"responseCode"`
	ResponseMsg  string          `json:"responseMsg"`
	Params       *responseParams `json:"params"`
}

type responseParams struct {
	ReferenceID         string      `json:"referenceId"`
	TransactionID       string      `json:"transactionId"`
	IssuerTransactionID string      `json:"issuerTransactionId"`
	State               string      `json:"state"`
	MerchantCharges     flexFloat64 `json:"merchantCharges"`
	TxAmount            flexFloat64 `json:"txAmount"`
}

// flexFloat64 accepts amounts encoded either as JSON numbers or strings.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", b, err)
	}
	*f = flexFloat64(v)
	return nil
}

// Client is a gateway.Client for WaafiPay. It never retries.
type Client struct {
	endpoint      string
	merchantUID   string
	apiUserID     string
	apiKey        string
	currency      string
	paymentMethod string
	timeout       time.Duration

	httpClient *http.Client
	clock      clock.Clock
	log        *slog.Logger
}

var _ gateway.Client = (*Client)(nil)

// NewClient creates a gateway client with connection pooling. The per-call
// deadline comes from cfg.Timeout through the request context.
func NewClient(cfg *config.Gateway, clk clock.Clock, log *slog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(cfg.IdleConnTimeout) * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		endpoint:      cfg.BaseURL,
		merchantUID:   cfg.MerchantUID,
		apiUserID:     cfg.APIUserID,
		apiKey:        cfg.APIKey,
		currency:      cfg.Currency,
		paymentMethod: cfg.PaymentMethod,
		timeout:       cfg.Timeout(),
		httpClient:    &http.Client{Transport: transport},
		clock:         clk,
		log:           log.With("component", "waafi_client"),
	}
}

// Charge submits one purchase. Only invalid input produces an error.
func (c *Client) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchase request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.unreachable(req, fmt.Errorf("purchase request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.unreachable(req, fmt.Errorf("failed to read purchase response: %w", err)), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.unreachable(req, fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)), nil
	}

	var decoded purchaseResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return c.unreachable(req, fmt.Errorf("failed to decode purchase response: %w", err)), nil
	}

	result := classify(&decoded)
	c.log.Info("gateway charge completed",
		"reference_id", req.ReferenceID,
		"outcome", result.Outcome.String(),
		"response_code", result.ResponseCode,
		"duration", c.clock.Now().Sub(start),
	)
	return result, nil
}

func (c *Client) buildRequest(req gateway.ChargeRequest) purchaseRequest {
	now := c.clock.Now()
	return purchaseRequest{
		SchemaVersion: "1.0",
		RequestID:     newRequestID(now),
		Timestamp:     now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ChannelName:   "WEB",
		ServiceName:   "API_PURCHASE",
		ServiceParams: serviceParams{
			MerchantUID:   c.merchantUID,
			APIUserID:     c.apiUserID,
			APIKey:        c.apiKey,
			PaymentMethod: c.paymentMethod,
			PayerInfo:     payerInfo{AccountNo: req.PayerAccount},
			TransactionInfo: transactionInfo{
				ReferenceID: req.ReferenceID,
				InvoiceID:   "INV_" + req.ReferenceID,
				Amount:      req.Amount,
				Currency:    c.currency,
				Description: req.Description,
			},
		},
	}
}

func (c *Client) unreachable(req gateway.ChargeRequest, err error) *gateway.ChargeResult {
	c.log.Warn("gateway unreachable", "reference_id", req.ReferenceID, "error", err)
	return &gateway.ChargeResult{
		Outcome:     gateway.Unreachable,
		ReferenceID: req.ReferenceID,
		Err:         err,
	}
}

func classify(resp *purchaseResponse) *gateway.ChargeResult {
	if resp.ResponseCode != ApprovedCode {
		msg := resp.ResponseMsg
		if msg == "" {
			msg = defaultRejectMsg
		}
		return &gateway.ChargeResult{
			Outcome:      gateway.Rejected,
			ResponseCode: resp.ResponseCode,
			ResponseMsg:  msg,
		}
	}

	result := &gateway.ChargeResult{
		Outcome:      gateway.Approved,
		ResponseCode: resp.ResponseCode,
		ResponseMsg:  resp.ResponseMsg,
	}
	if p := resp.Params; p != nil {
		result.ReferenceID = p.ReferenceID
		result.TransactionID = p.TransactionID
		result.IssuerTransactionID = p.IssuerTransactionID
		result.State = p.State
		result.MerchantCharges = float64(p.MerchantCharges)
		result.TxAmount = float64(p.TxAmount)
	}
	return result
}

// newRequestID returns REQ_<unix millis>_<9 random characters>.
func newRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("REQ_%d_%s", now.UnixMilli(), suffix)
}
