package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/gateway"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/service"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type memRepo struct {
	mu       sync.Mutex
	payments map[string]model.Payment
	createFn func(*model.Payment) error
}

func newMemRepo() *memRepo {
	return &memRepo{payments: make(map[string]model.Payment)}
}

func (r *memRepo) CreatePayment(_ context.Context, p *model.Payment) error {
	if r.createFn != nil {
		if err := r.createFn(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = *p
	return nil
}

func (r *memRepo) GetPaymentByID(_ context.Context, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "payment", ID: id}
	}
	return &p, nil
}

func (r *memRepo) ListUserPayments(_ context.Context, f model.PaymentFilter) ([]model.Payment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Payment
	for _, p := range r.payments {
		if p.UserID == f.UserID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if f.Offset >= total {
		return []model.Payment{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *memRepo) TransitionPayment(_ context.Context, req model.TransitionRequest) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[req.PaymentID]
	if !ok {
		return nil, &model.NotFoundError{Resource: "payment", ID: req.PaymentID}
	}
	if p.Status != req.From {
		return nil, &model.ConflictError{PaymentID: req.PaymentID, Reason: "status changed"}
	}
	p.Status = req.To
	p.ChargeClaimedAt = nil
	if req.Gateway != nil {
		p.Gateway = *req.Gateway
	}
	if req.PaidAt != nil {
		p.PaidAt = req.PaidAt
	}
	r.payments[p.ID] = p
	return &p, nil
}

func (r *memRepo) ClaimCharge(_ context.Context, id string, now, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != model.StatusPending || p.HasGatewayResponse() {
		return false, nil
	}
	if p.ChargeClaimedAt != nil && !p.ChargeClaimedAt.Before(staleBefore) {
		return false, nil
	}
	p.ChargeClaimedAt = &now
	r.payments[id] = p
	return true, nil
}

func (r *memRepo) ReleaseCharge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		p.ChargeClaimedAt = nil
		r.payments[id] = p
	}
	return nil
}

func (r *memRepo) ListPendingPayments(_ context.Context, olderThan time.Time, limit int) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for _, p := range r.payments {
		if p.Status == model.StatusPending && p.CreatedAt.Before(olderThan) && !p.HasGatewayResponse() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Ping(context.Context) error { return nil }

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

func (r *memRepo) put(p model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
}

type fakePlaces map[string]service.PlaceDetails

func (f fakePlaces) GetPlace(_ context.Context, id string) (*service.PlaceDetails, error) {
	p, ok := f[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "place", ID: id}
	}
	return &p, nil
}

type fakeGateway struct {
	calls    atomic.Int64
	chargeFn func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error)
}

func (g *fakeGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.calls.Add(1)
	return g.chargeFn(ctx, req)
}

func approving() *fakeGateway {
	return &fakeGateway{chargeFn: func(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return &gateway.ChargeResult{
			Outcome:       gateway.Approved,
			ReferenceID:   req.ReferenceID,
			TransactionID: "TX-" + req.ReferenceID,
			State:         "APPROVED",
			ResponseCode:  "2001",
			ResponseMsg:   "RCS_SUCCESS",
			TxAmount:      req.Amount,
		}, nil
	}}
}

func rejecting(code, msg string) *fakeGateway {
	return &fakeGateway{chargeFn: func(context.Context, gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return &gateway.ChargeResult{Outcome: gateway.Rejected, ResponseCode: code, ResponseMsg: msg}, nil
	}}
}

func unreachable() *fakeGateway {
	return &fakeGateway{chargeFn: func(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return &gateway.ChargeResult{
			Outcome:     gateway.Unreachable,
			ReferenceID: req.ReferenceID,
			Err:         errors.New("dial tcp: connection refused"),
		}, nil
	}}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.PaymentEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memIdempotency struct {
	mu          sync.Mutex
	keys        map[string]string
	reservedTTL time.Duration
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]string)}
}

func (m *memIdempotency) Reserve(_ context.Context, userID, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservedTTL = ttl
	k := userID + ":" + key
	v, ok := m.keys[k]
	if !ok {
		m.keys[k] = ""
		return "", nil
	}
	if v == "" {
		return "", model.ErrIdempotencyInProgress
	}
	return v, nil
}

func (m *memIdempotency) Complete(_ context.Context, userID, key, paymentID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID+":"+key] = paymentID
	return nil
}

func (m *memIdempotency) Release(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, userID+":"+key)
	return nil
}

func (m *memIdempotency) Ping(context.Context) error { return nil }

type fixture struct {
	orch   *Orchestrator
	repo   *memRepo
	gw     *fakeGateway
	events *recordingPublisher
	idem   *memIdempotency
	clock  *clock.Manual
}

func defaultOptions() Options {
	return Options{
		Mode:               config.PaymentModeProduction,
		SandboxAmount:      0.01,
		GatewayTimeout:     time.Second,
		PlaceLookupTimeout: 2 * time.Second,
		IdempotencyTTL:     time.Hour,
		Currency:           "USD",
		PaymentMethod:      "mwallet_account",
	}
}

func testPlaces() fakePlaces {
	return fakePlaces{
		"lido":   {ID: "lido", NameEng: "Lido Beach", Category: "beach", PricePerPerson: 8, MaxCapacity: 50},
		"free":   {ID: "free", NameEng: "Peace Garden", Category: "urban park", PricePerPerson: 0, MaxCapacity: 50},
		"mosque": {ID: "mosque", NameEng: "Arba'a Rukun Mosque", Category: "religious", PricePerPerson: 5, MaxCapacity: 10},
	}
}

func newFixture(t *testing.T, gw *fakeGateway, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newMemRepo(),
		gw:     gw,
		events: &recordingPublisher{},
		idem:   newMemIdempotency(),
		clock:  clock.NewManual(testNow),
	}
	f.orch = New(f.repo, testPlaces(), gw, f.events, f.idem, f.clock, opts, logging.Discard())
	return f
}

func validRequest() CreatePaymentRequest {
	return CreatePaymentRequest{
		UserID:        "user-1",
		UserFullName:  "Amina Hassan",
		UserAccountNo: "252615123456",
		PlaceID:       "lido",
		BookingDate:   "2026-11-02",
		TimeSlot:      "09:00-11:00",
		VisitorCount:  3,
		ContactEmail:  "amina@example.com",
	}
}

func seedPayments(repo *memRepo, userID string, n int) {
	for i := 0; i < n; i++ {
		repo.put(model.Payment{
			ID:        fmt.Sprintf("%s-pay-%02d", userID, i),
			UserID:    userID,
			Status:    model.StatusConfirmed,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		})
	}
}
