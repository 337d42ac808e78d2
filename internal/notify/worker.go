package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kstorelabs/kstore-cart/internal/email"
)

// WorkerConfig tunes the notification worker.
type WorkerConfig struct {
	// PollInterval is how often the worker checks for pending jobs.
	PollInterval time.Duration
	// BatchSize caps how many jobs are claimed per poll.
	BatchSize int
	// MaxAttempts is the attempt count after which a job is parked as
	// failed instead of retried.
	MaxAttempts int
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
}

func (c *WorkerConfig) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = 10 * time.Second
	}
}

// Worker drains the notification job queue, rendering and sending emails.
type Worker struct {
	cfg    WorkerConfig
	store  JobStore
	sender email.Sender
}

// NewWorker creates a Worker with the given store and sender.
func NewWorker(cfg WorkerConfig, store JobStore, sender email.Sender) *Worker {
	cfg.applyDefaults()
	return &Worker{cfg: cfg, store: store, sender: sender}
}

// Run polls for pending jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				zctx.From(ctx).Warn("Notification poll failed", zap.Error(err))
			}
		}
	}
}

// drainOnce claims one batch and processes it.
func (w *Worker) drainOnce(ctx context.Context) error {
	jobs, err := w.store.ClaimPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return errors.Wrap(err, "claim pending")
	}

	lg := zctx.From(ctx)
	for _, job := range jobs {
		if err := w.process(ctx, job); err != nil {
			retry := job.Attempts < w.cfg.MaxAttempts
			lg.Warn("Notification job failed",
				zap.Int64("job_id", job.ID),
				zap.String("job_type", job.Type),
				zap.Int("attempts", job.Attempts),
				zap.Bool("retry", retry),
				zap.Error(err))
			if err := w.store.MarkFailed(ctx, job.ID, err.Error(), retry); err != nil {
				lg.Error("Failed to record job failure", zap.Int64("job_id", job.ID), zap.Error(err))
			}
			continue
		}
		if err := w.store.MarkDone(ctx, job.ID); err != nil {
			lg.Error("Failed to mark job done", zap.Int64("job_id", job.ID), zap.Error(err))
		}
	}
	return nil
}

// process dispatches a single job by type.
func (w *Worker) process(ctx context.Context, job Job) error {
	switch job.Type {
	case JobTypeOrderConfirmation:
		return w.sendOrderConfirmation(ctx, job.Payload)
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}
}

func (w *Worker) sendOrderConfirmation(ctx context.Context, payload []byte) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errors.Wrap(err, "unmarshal payload")
	}

	body, err := email.RenderOrderConfirmation(email.OrderConfirmationData{
		CustomerName:  p.CustomerName,
		OrderID:       p.OrderID,
		OrderDate:     p.OrderDate,
		Status:        p.Status,
		ItemsPrice:    p.ItemsPrice,
		TaxPrice:      p.TaxPrice,
		ShippingPrice: p.ShippingPrice,
		Discount:      p.Discount,
		TotalPrice:    p.TotalPrice,
	})
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	defer cancel()

	return w.sender.Send(sendCtx, email.Message{
		To:      p.Email,
		Subject: "Your K-Store order " + p.OrderID,
		HTML:    body,
	})
}
