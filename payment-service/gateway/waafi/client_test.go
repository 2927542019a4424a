package waafi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(&config.Gateway{
		BaseURL:        srv.URL,
		MerchantUID:    "M001",
		APIUserID:      "U001",
		APIKey:         "secret-key",
		TimeoutSeconds: 30,
		Currency:       "USD",
		PaymentMethod:  "mwallet_account",
	}, clock.NewManual(fixedNow), logging.Discard())
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

func chargeRequest() gateway.ChargeRequest {
	return gateway.ChargeRequest{
		Amount:       24,
		PayerAccount: "252615123456",
		Description:  "Lido Beach visit for 3",
		ReferenceID:  "pay-123",
	}
}

func TestClient_Charge_WireFormat(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"responseCode":"2001","responseMsg":"RCS_SUCCESS"}`))
	}, 0)

	if _, err := client.Charge(context.Background(), chargeRequest()); err != nil {
		t.Fatalf("Charge: %v", err)
	}

	if got["schemaVersion"] != "1.0" || got["channelName"] != "WEB" || got["serviceName"] != "API_PURCHASE" {
		t.Errorf("unexpected envelope: %v", got)
	}
	if id, _ := got["requestId"].(string); !strings.HasPrefix(id, "REQ_1792143000000_") || len(id) != len("REQ_1792143000000_")+9 {
		t.Errorf("unexpected requestId %q", id)
	}
	if got["timestamp"] != "2026-10-16T09:30:00.000Z" {
		t.Errorf("unexpected timestamp %v", got["timestamp"])
	}

	params := got["serviceParams"].(map[string]any)
	if params["merchantUid"] != "M001" || params["apiUserId"] != "U001" || params["apiKey"] != "secret-key" {
		t.Errorf("unexpected credentials: %v", params)
	}
	if params["paymentMethod"] != "mwallet_account" {
		t.Errorf("unexpected payment method %v", params["paymentMethod"])
	}
	if payer := params["payerInfo"].(map[string]any); payer["accountNo"] != "252615123456" {
		t.Errorf("unexpected payer %v", payer)
	}

	tx := params["transactionInfo"].(map[string]any)
	if tx["referenceId"] != "pay-123" || tx["invoiceId"] != "INV_pay-123" {
		t.Errorf("unexpected references: %v", tx)
	}
	if tx["amount"] != 24.0 || tx["currency"] != "USD" || tx["description"] != "Lido Beach visit for 3" {
		t.Errorf("unexpected transaction info: %v", tx)
	}
}

func TestClient_Charge_Outcomes(t *testing.T) {
	t.Run("Given response code 2001 When charging Then the result is Approved with params", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"responseCode": "2001",
				"responseMsg": "RCS_SUCCESS",
				"params": {
					"referenceId": "pay-123",
					"transactionId": "TX998",
					"issuerTransactionId": "ISS42",
					"state": "APPROVED",
					"merchantCharges": "0.00",
					"txAmount": 24
				}
			}`))
		}, 0)

		res, err := client.Charge(context.Background(), chargeRequest())
		if err != nil {
			t.Fatalf("Charge: %v", err)
		}
		if res.Outcome != gateway.Approved {
			t.Fatalf("expected Approved, got %s", res.Outcome)
		}
		if res.TransactionID != "TX998" || res.IssuerTransactionID != "ISS42" || res.State != "APPROVED" || res.TxAmount != 24 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Given another response code When charging Then the result is Rejected verbatim", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"responseCode":"5206","responseMsg":"Payment Failed (Insufficient balance)"}`))
		}, 0)

		res, err := client.Charge(context.Background(), chargeRequest())
		if err != nil {
			t.Fatalf("Charge: %v", err)
		}
		if res.Outcome != gateway.Rejected || res.ResponseCode != "5206" || res.ResponseMsg != "Payment Failed (Insufficient balance)" {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Given a body without a code When charging Then it is Rejected with the default message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}, 0)

		res, _ := client.Charge(context.Background(), chargeRequest())
		if res.Outcome != gateway.Rejected || res.ResponseCode != "" || res.ResponseMsg != "Payment failed" {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Given a non-JSON body When charging Then the result is Unreachable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		}, 0)

		res, _ := client.Charge(context.Background(), chargeRequest())
		if res.Outcome != gateway.Unreachable || res.Err == nil {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Given an HTTP 502 When charging Then the result is Unreachable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, 0)

		res, _ := client.Charge(context.Background(), chargeRequest())
		if res.Outcome != gateway.Unreachable {
			t.Errorf("expected Unreachable, got %s", res.Outcome)
		}
	})

	t.Run("Given a slow gateway When the timeout elapses Then the result is Unreachable", func(t *testing.T) {
		release := make(chan struct{})
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)
		defer close(release)

		res, err := client.Charge(context.Background(), chargeRequest())
		if err != nil {
			t.Fatalf("Charge: %v", err)
		}
		if res.Outcome != gateway.Unreachable || !errors.Is(res.Err, context.DeadlineExceeded) {
			t.Errorf("expected Unreachable with deadline exceeded, got %+v", res)
		}
	})

	t.Run("Given a closed server When charging Then the result is Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		client := NewClient(&config.Gateway{BaseURL: srv.URL, TimeoutSeconds: 1}, clock.Real(), logging.Discard())
		srv.Close()

		res, _ := client.Charge(context.Background(), chargeRequest())
		if res.Outcome != gateway.Unreachable {
			t.Errorf("expected Unreachable, got %s", res.Outcome)
		}
	})
}

func TestClient_Charge_InvalidInput(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	}, 0)

	req := chargeRequest()
	req.Amount = -1
	if _, err := client.Charge(context.Background(), req); !errors.Is(err, gateway.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no HTTP call, got %d", calls)
	}
}

func TestNewClient_ConnectionPool(t *testing.T) {
	c := NewClient(&config.Gateway{
		BaseURL:             "https://gateway.example",
		TimeoutSeconds:      30,
		MaxIdleConns:        40,
		MaxIdleConnsPerHost: 15,
		MaxConnsPerHost:     25,
		IdleConnTimeout:     60,
	}, clock.Real(), logging.Discard())

	transport, ok := c.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected a pooled *http.Transport, got %T", c.httpClient.Transport)
	}
	if transport.MaxIdleConns != 40 || transport.MaxIdleConnsPerHost != 15 || transport.MaxConnsPerHost != 25 {
		t.Errorf("unexpected pool sizes: %d %d %d", transport.MaxIdleConns, transport.MaxIdleConnsPerHost, transport.MaxConnsPerHost)
	}
	if transport.IdleConnTimeout != time.Minute {
		t.Errorf("expected 1m idle timeout, got %v", transport.IdleConnTimeout)
	}
}
