package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/payment-service/gateway"
	"github.com/arunvm123/tourismbooking/payment-service/model"
)

func TestOrchestrator_Retry_AfterGatewayResponse(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		gw   func() *fakeGateway
	}{
		{name: "approved", gw: approving},
		{name: "rejected", gw: func() *fakeGateway { return rejecting("5310", "RCS_USER_REJECTED") }},
	}
	for _, tt := range tests {
		t.Run("Given a "+tt.name+" payment reset to pending by an admin When retrying Then the gateway is not called again", func(t *testing.T) {
			f := newFixture(t, tt.gw(), defaultOptions())
			res, _ := f.orch.Create(ctx, validRequest(), "")
			if res == nil || res.Payment == nil {
				t.Fatal("expected a persisted payment")
			}
			id := res.Payment.ID

			if _, err := f.orch.UpdateStatus(ctx, id, model.StatusPending); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}

			_, err := f.orch.Retry(ctx, id)
			var conflict *model.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
			if got := f.gw.calls.Load(); got != 1 {
				t.Errorf("expected 1 gateway call, got %d", got)
			}

			pending, err := f.repo.ListPendingPayments(ctx, testNow.Add(time.Hour), 10)
			if err != nil {
				t.Fatalf("ListPendingPayments: %v", err)
			}
			if len(pending) != 0 {
				t.Errorf("a payment with a gateway response must not be swept, got %d", len(pending))
			}
		})
	}
}

func TestOrchestrator_ChargeClaim_AcrossOrchestrators(t *testing.T) {
	ctx := context.Background()

	t.Run("Given two orchestrators sharing storage When both retry the same payment Then the gateway is called once", func(t *testing.T) {
		f := newFixture(t, unreachable(), defaultOptions())
		res, _ := f.orch.Create(ctx, validRequest(), "")
		id := res.Payment.ID

		started := make(chan struct{})
		release := make(chan struct{})
		f.gw.chargeFn = func(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
			close(started)
			<-release
			return approving().chargeFn(context.Background(), req)
		}
		otherGateway := approving()
		other := New(f.repo, testPlaces(), otherGateway, f.events, newMemIdempotency(), f.clock, defaultOptions(), logging.Discard())

		done := make(chan error, 1)
		go func() {
			_, err := f.orch.Retry(ctx, id)
			done <- err
		}()
		<-started

		_, err := other.Retry(ctx, id)
		var conflict *model.ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("expected ConflictError from the second orchestrator, got %v", err)
		}
		_, err = other.UpdateStatus(ctx, id, model.StatusCancelled)
		if !errors.As(err, &conflict) {
			t.Errorf("expected ConflictError on update, got %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if got := otherGateway.calls.Load(); got != 0 {
			t.Errorf("second orchestrator called the gateway %d times", got)
		}
		if got := f.gw.calls.Load(); got != 2 {
			t.Errorf("expected 2 gateway calls in total, got %d", got)
		}
		stored, _ := f.repo.GetPaymentByID(ctx, id)
		if stored.Status != model.StatusConfirmed || stored.ChargeClaimedAt != nil {
			t.Errorf("expected confirmed and unclaimed, got %s claimed %v", stored.Status, stored.ChargeClaimedAt)
		}
	})

	t.Run("Given a claim left by a crashed process When the lease runs out Then the payment can be retried", func(t *testing.T) {
		f := newFixture(t, unreachable(), defaultOptions())
		res, _ := f.orch.Create(ctx, validRequest(), "")
		id := res.Payment.ID

		claimed, err := f.repo.ClaimCharge(ctx, id, f.clock.Now(), f.clock.Now().Add(-time.Hour))
		if err != nil || !claimed {
			t.Fatalf("ClaimCharge: %v %v", claimed, err)
		}
		f.gw.chargeFn = approving().chargeFn

		_, err = f.orch.Retry(ctx, id)
		var conflict *model.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError while the lease holds, got %v", err)
		}

		f.clock.Advance(defaultOptions().GatewayTimeout + settleGrace + time.Second)
		retried, err := f.orch.Retry(ctx, id)
		if err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if retried.Payment.Status != model.StatusConfirmed {
			t.Errorf("expected confirmed, got %s", retried.Payment.Status)
		}
	})

	t.Run("Given a pending payment without a claim When an admin confirms it Then the claim is taken and cleared", func(t *testing.T) {
		f := newFixture(t, unreachable(), defaultOptions())
		res, _ := f.orch.Create(ctx, validRequest(), "")

		updated, err := f.orch.UpdateStatus(ctx, res.Payment.ID, model.StatusConfirmed)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if updated.ChargeClaimedAt != nil {
			t.Errorf("expected the transition to clear the claim, got %v", updated.ChargeClaimedAt)
		}
	})
}

func TestOrchestrator_Create_ApprovedButNotRecorded(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, approving(), defaultOptions())
	f.orch = New(f.repo, testPlaces(), f.gw, f.events, newMemIdempotency(), f.clock, defaultOptions(),
		logging.NewWithWriter(logging.EnvDevelopment, &buf))

	f.gw.chargeFn = func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		if _, err := f.repo.TransitionPayment(ctx, model.TransitionRequest{
			PaymentID: req.ReferenceID,
			From:      model.StatusPending,
			To:        model.StatusCancelled,
		}); err != nil {
			t.Errorf("TransitionPayment: %v", err)
		}
		return approving().chargeFn(ctx, req)
	}

	res, err := f.orch.Create(context.Background(), validRequest(), "")
	var conflict *model.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "reconcile manually") {
		t.Errorf("expected an error log asking for reconciliation, got %q", out)
	}
	if !strings.Contains(out, "transaction_id=TX-"+res.Payment.ID) || !strings.Contains(out, "response_code=2001") {
		t.Errorf("expected the gateway response in the log, got %q", out)
	}
}
