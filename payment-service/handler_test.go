package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/orchestrator"
	"github.com/gin-gonic/gin"
)

type stubOrchestrator struct {
	createFunc       func(ctx context.Context, req orchestrator.CreatePaymentRequest, key string) (*orchestrator.CreateResult, error)
	retryFunc        func(ctx context.Context, id string) (*orchestrator.CreateResult, error)
	updateStatusFunc func(ctx context.Context, id, status string) (*model.Payment, error)
	getByIDFunc      func(ctx context.Context, id string) (*model.Payment, error)
	getHistoryFunc   func(ctx context.Context, userID string, page, pageSize int) (*orchestrator.History, error)
}

func (s *stubOrchestrator) Create(ctx context.Context, req orchestrator.CreatePaymentRequest, key string) (*orchestrator.CreateResult, error) {
	return s.createFunc(ctx, req, key)
}

func (s *stubOrchestrator) Retry(ctx context.Context, id string) (*orchestrator.CreateResult, error) {
	return s.retryFunc(ctx, id)
}

func (s *stubOrchestrator) UpdateStatus(ctx context.Context, id, status string) (*model.Payment, error) {
	return s.updateStatusFunc(ctx, id, status)
}

func (s *stubOrchestrator) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	if s.getByIDFunc == nil {
		return nil, &model.NotFoundError{Resource: "payment", ID: id}
	}
	return s.getByIDFunc(ctx, id)
}

func (s *stubOrchestrator) GetHistory(ctx context.Context, userID string, page, pageSize int) (*orchestrator.History, error) {
	return s.getHistoryFunc(ctx, userID, page, pageSize)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router     *gin.Engine
	orch       *stubOrchestrator
	userToken  string
	otherToken string
	adminToken string
}

func newTestServer(t *testing.T, db pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := &stubOrchestrator{}
	log := logging.Discard()
	handler := NewPaymentHandler(orch, db, nil, log)

	jwtService := auth.NewJWTService("test-secret", "payment-service")
	userToken, _ := jwtService.GenerateToken("u1", "u1@example.com", auth.RoleUser, time.Hour)
	otherToken, _ := jwtService.GenerateToken("u2", "u2@example.com", auth.RoleUser, time.Hour)
	adminToken, _ := jwtService.GenerateToken("admin", "admin@example.com", auth.RoleAdmin, time.Hour)

	return &testServer{
		router:     newRouter(handler, jwtService, log),
		orch:       orch,
		userToken:  userToken,
		otherToken: otherToken,
		adminToken: adminToken,
	}
}

func (ts *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func confirmedPayment(id, userID string) *model.Payment {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return &model.Payment{
		ID:               id,
		UserID:           userID,
		PlaceName:        "Lido Beach",
		BookingDate:      time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		VisitorCount:     3,
		PricePerPerson:   8,
		TotalAmount:      24,
		ActualPaidAmount: 24,
		Status:           model.StatusConfirmed,
		Gateway: model.GatewayResponse{
			TransactionID: "TX1",
			ResponseCode:  "2001",
			RespondedAt:   &now,
		},
		PaidAt: &now,
	}
}

var createBody = model.CreatePaymentAPIRequest{
	UserFullName:  "Amina Hassan",
	UserAccountNo: "252615123456",
	PlaceID:       "lido",
	BookingDate:   "2026-11-02",
	TimeSlot:      "09:00-11:00",
	VisitorCount:  3,
	ContactInfo:   &model.ContactInfo{Email: "amina@example.com"},
}

func TestCreatePayment(t *testing.T) {
	t.Run("Given no token When creating Then 401", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		w := ts.do(http.MethodPost, "/api/payments", "", createBody)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("Given an approved charge When creating Then 201 with the gateway response", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		var gotReq orchestrator.CreatePaymentRequest
		var gotKey string
		ts.orch.createFunc = func(_ context.Context, req orchestrator.CreatePaymentRequest, key string) (*orchestrator.CreateResult, error) {
			gotReq, gotKey = req, key
			return &orchestrator.CreateResult{Payment: confirmedPayment("pay-1", req.UserID)}, nil
		}

		w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody, "Idempotency-Key", "abc")
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if gotReq.UserID != "u1" || gotReq.ContactEmail != "amina@example.com" || gotKey != "abc" {
			t.Errorf("unexpected request passed on: %+v key=%q", gotReq, gotKey)
		}

		resp := decode[model.CreatePaymentResponse](t, w)
		if resp.PaymentID != "pay-1" || resp.TotalAmount != 24 || resp.Status != model.StatusConfirmed {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.GatewayResponse == nil || resp.GatewayResponse.TransactionID != "TX1" || resp.FallbackMode {
			t.Errorf("unexpected gateway response %+v", resp.GatewayResponse)
		}
	})

	t.Run("Given a replayed idempotency key When creating Then 200", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		ts.orch.createFunc = func(_ context.Context, req orchestrator.CreatePaymentRequest, _ string) (*orchestrator.CreateResult, error) {
			return &orchestrator.CreateResult{Payment: confirmedPayment("pay-1", req.UserID), Replayed: true}, nil
		}
		if w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody, "Idempotency-Key", "abc"); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("Given a fallback confirmation When creating Then the response is flagged", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		ts.orch.createFunc = func(_ context.Context, req orchestrator.CreatePaymentRequest, _ string) (*orchestrator.CreateResult, error) {
			p := confirmedPayment("pay-1", req.UserID)
			p.Gateway.ResponseCode = model.FallbackResponseCode
			p.Gateway.Fallback = true
			return &orchestrator.CreateResult{Payment: p, FallbackMode: true}, nil
		}

		w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody)
		resp := decode[model.CreatePaymentResponse](t, w)
		if !resp.FallbackMode || !resp.GatewayResponse.Fallback || resp.GatewayResponse.ResponseCode != "DEMO_MODE" {
			t.Errorf("expected fallback flags, got %+v", resp)
		}
	})

	t.Run("Given a rejected charge When creating Then 402 with provider message and payment id", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		ts.orch.createFunc = func(_ context.Context, req orchestrator.CreatePaymentRequest, _ string) (*orchestrator.CreateResult, error) {
			p := confirmedPayment("pay-9", req.UserID)
			p.Status = model.StatusCancelled
			return &orchestrator.CreateResult{Payment: p}, &model.GatewayRejectedError{PaymentID: "pay-9", Code: "5206", Message: "Insufficient balance"}
		}

		w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody)
		if w.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", w.Code)
		}
		resp := decode[struct {
			Error   string                      `json:"error"`
			Message string                      `json:"message"`
			Details model.CreatePaymentResponse `json:"details"`
		}](t, w)
		if resp.Message != "Insufficient balance" || resp.Details.PaymentID != "pay-9" || resp.Details.Status != model.StatusCancelled {
			t.Errorf("unexpected body %+v", resp)
		}
	})

	t.Run("Given an unreachable gateway When creating Then 503 with the pending payment", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		ts.orch.createFunc = func(_ context.Context, req orchestrator.CreatePaymentRequest, _ string) (*orchestrator.CreateResult, error) {
			p := &model.Payment{ID: "pay-5", UserID: req.UserID, Status: model.StatusPending}
			return &orchestrator.CreateResult{Payment: p}, &model.GatewayUnreachableError{PaymentID: "pay-5", Err: errors.New("timeout")}
		}

		w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("Given business errors When creating Then they map to 4xx", func(t *testing.T) {
		cases := []struct {
			err  error
			code int
		}{
			{&model.ValidationError{Field: "user_account_no", Reason: "bad"}, http.StatusBadRequest},
			{&model.NotFoundError{Resource: "place", ID: "x"}, http.StatusNotFound},
			{&model.CapacityExceededError{Requested: 60, MaxCapacity: 50}, http.StatusBadRequest},
			{&model.InvalidAmountError{Amount: 0}, http.StatusBadRequest},
			{&model.ConflictError{Reason: "in progress"}, http.StatusConflict},
			{&model.InternalError{Op: "persist payment", Err: errors.New("db down")}, http.StatusInternalServerError},
		}
		for _, tc := range cases {
			ts := newTestServer(t, stubPinger{})
			ts.orch.createFunc = func(context.Context, orchestrator.CreatePaymentRequest, string) (*orchestrator.CreateResult, error) {
				return nil, tc.err
			}
			if w := ts.do(http.MethodPost, "/api/payments", ts.userToken, createBody); w.Code != tc.code {
				t.Errorf("%T: expected %d, got %d", tc.err, tc.code, w.Code)
			}
		}
	})

	t.Run("Given malformed JSON When creating Then 400", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{})
		req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+ts.userToken)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestGetPayment_Ownership(t *testing.T) {
	ts := newTestServer(t, stubPinger{})
	ts.orch.getByIDFunc = func(_ context.Context, id string) (*model.Payment, error) {
		if id == "pay-1" {
			return confirmedPayment("pay-1", "u1"), nil
		}
		return nil, &model.NotFoundError{Resource: "payment", ID: id}
	}

	if w := ts.do(http.MethodGet, "/api/payments/pay-1", ts.userToken, nil); w.Code != http.StatusOK {
		t.Errorf("owner: expected 200, got %d", w.Code)
	}
	if w := ts.do(http.MethodGet, "/api/payments/pay-1", ts.otherToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("other user: expected 403, got %d", w.Code)
	}
	if w := ts.do(http.MethodGet, "/api/payments/pay-1", ts.adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
	if w := ts.do(http.MethodGet, "/api/payments/missing", ts.userToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", w.Code)
	}

	w := ts.do(http.MethodGet, "/api/payments/pay-1", ts.userToken, nil)
	resp := decode[model.PaymentResponse](t, w)
	if resp.BookingDate != "2026-11-02" || resp.GatewayResponse == nil {
		t.Errorf("unexpected payment response %+v", resp)
	}
}

func TestGetPaymentHistory(t *testing.T) {
	ts := newTestServer(t, stubPinger{})
	var gotPage, gotLimit int
	ts.orch.getHistoryFunc = func(_ context.Context, userID string, page, limit int) (*orchestrator.History, error) {
		gotPage, gotLimit = page, limit
		return &orchestrator.History{
			Payments:   []model.Payment{*confirmedPayment("pay-1", userID)},
			Total:      21,
			Page:       page,
			PageSize:   limit,
			TotalPages: 3,
		}, nil
	}

	w := ts.do(http.MethodGet, "/api/payments/history/u1?page=2&limit=10", ts.userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[model.PaymentHistoryResponse](t, w)
	if gotPage != 2 || gotLimit != 10 || resp.Total != 21 || resp.TotalPages != 3 || resp.CurrentPage != 2 || len(resp.Payments) != 1 {
		t.Errorf("unexpected history %+v (page %d limit %d)", resp, gotPage, gotLimit)
	}

	if w := ts.do(http.MethodGet, "/api/payments/history/u1", ts.otherToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("other user: expected 403, got %d", w.Code)
	}
	if w := ts.do(http.MethodGet, "/api/payments/history/u1?page=abc", ts.userToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad page: expected 400, got %d", w.Code)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	ts := newTestServer(t, stubPinger{})
	ts.orch.updateStatusFunc = func(_ context.Context, id, status string) (*model.Payment, error) {
		if status == model.StatusCancelled {
			return nil, &model.InvalidTransitionError{From: model.StatusCompleted, To: status}
		}
		p := confirmedPayment(id, "u1")
		p.Status = status
		return p, nil
	}

	body := model.UpdateStatusAPIRequest{Status: model.StatusCompleted}
	if w := ts.do(http.MethodPut, "/api/payments/pay-1/status", ts.userToken, body); w.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", w.Code)
	}
	if w := ts.do(http.MethodPut, "/api/payments/pay-1/status", ts.adminToken, body); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
	if w := ts.do(http.MethodPut, "/api/payments/pay-1/status", ts.adminToken, model.UpdateStatusAPIRequest{Status: model.StatusCancelled}); w.Code != http.StatusBadRequest {
		t.Errorf("leaving completed: expected 400, got %d", w.Code)
	}
	if w := ts.do(http.MethodPut, "/api/payments/pay-1/status", ts.adminToken, map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing status: expected 400, got %d", w.Code)
	}
}

func TestRetryPayment(t *testing.T) {
	ts := newTestServer(t, stubPinger{})
	ts.orch.getByIDFunc = func(_ context.Context, id string) (*model.Payment, error) {
		return &model.Payment{ID: id, UserID: "u1", Status: model.StatusPending}, nil
	}
	ts.orch.retryFunc = func(_ context.Context, id string) (*orchestrator.CreateResult, error) {
		return &orchestrator.CreateResult{Payment: confirmedPayment(id, "u1")}, nil
	}

	w := ts.do(http.MethodPost, "/api/payments/pay-1/retry", ts.userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decode[model.CreatePaymentResponse](t, w); resp.Status != model.StatusConfirmed {
		t.Errorf("unexpected status %s", resp.Status)
	}
	if w := ts.do(http.MethodPost, "/api/payments/pay-1/retry", ts.otherToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("other user: expected 403, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	if w := newTestServer(t, stubPinger{}).do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := newTestServer(t, stubPinger{err: errors.New("down")}).do(http.MethodGet, "/health", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
