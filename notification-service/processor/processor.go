package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arunvm123/tourismbooking/notification-service/model"
	"github.com/segmentio/kafka-go"
)

// defaultReadBackoff is the pause after a failed read so a broker outage
// does not spin the loop.
const defaultReadBackoff = time.Second

// MessageReader is the subset of *kafka.Reader the processor needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Sender delivers a rendered receipt.
type Sender interface {
	Send(ctx context.Context, r *model.Receipt) error
}

// LogSender only logs receipts. Real delivery is not wired up yet.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, r *model.Receipt) error {
	s.log.Info("receipt sent",
		"channel", r.Channel,
		"to", r.To,
		"subject", r.Subject,
		"body", r.Body,
	)
	return nil
}

type Processor struct {
	sender Sender
	from   model.Sender
	log    *slog.Logger

	readBackoff time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

func New(sender Sender, from model.Sender, log *slog.Logger) *Processor {
	return &Processor{sender: sender, from: from, log: log, readBackoff: defaultReadBackoff}
}

// Run reads messages until ctx is cancelled. After a read error the loop
// waits readBackoff and carries on; a failed message is counted and skipped.
func (p *Processor) Run(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error("failed to read message", "error", err, "retry_in", p.readBackoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.readBackoff):
			}
			continue
		}

		if err := p.Handle(ctx, msg); err != nil {
			p.failed.Add(1)
			p.log.Error("failed to process payment event",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			continue
		}
		p.processed.Add(1)
	}
}

// Handle decodes one payment event and sends its receipt. Events with no
// recipient or an unknown type are skipped without error.
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event: %w", err)
	}
	if event.PaymentID == "" {
		return errors.New("payment event without payment_id")
	}

	log := p.log.With("payment_id", event.PaymentID, "type", event.Type)

	receipt, ok := event.GenerateReceipt(p.from)
	if !ok {
		if _, _, hasRecipient := event.Recipient(); !hasRecipient {
			log.Warn("payment event has no recipient, skipping")
		} else {
			log.Warn("unknown payment event type, skipping")
		}
		return nil
	}

	if err := p.sender.Send(ctx, receipt); err != nil {
		return fmt.Errorf("failed to send receipt: %w", err)
	}
	log.Debug("payment event processed", "channel", receipt.Channel)
	return nil
}

func (p *Processor) Processed() int64 { return p.processed.Load() }

func (p *Processor) Failed() int64 { return p.failed.Load() }
