package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/pkg/config"
	"github.com/sekolahku/psb-api/pkg/jobs"
)

// ReceiptRenderer is the worker-side contract of the payment service.
type ReceiptRenderer interface {
	RenderReceiptJob(ctx context.Context, job jobs.Job) error
}

// ReceiptQueue runs receipt rendering in the background. The renderer is
// bound after construction because the payment service both enqueues jobs
// and handles them.
type ReceiptQueue struct {
	queue    *jobs.Queue
	renderer ReceiptRenderer
}

// NewReceiptQueue builds the queue from receipt settings.
func NewReceiptQueue(cfg config.ReceiptsConfig, logger *zap.Logger) *ReceiptQueue {
	q := &ReceiptQueue{}
	q.queue = jobs.NewQueue("receipts", q.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return q
}

// Bind attaches the renderer. Must happen before Start.
func (q *ReceiptQueue) Bind(renderer ReceiptRenderer) {
	q.renderer = renderer
}

// Start launches the workers.
func (q *ReceiptQueue) Start(ctx context.Context) {
	q.queue.Start(ctx)
}

// Stop drains the workers.
func (q *ReceiptQueue) Stop() {
	q.queue.Stop()
}

// Enqueue pushes a rendering job.
func (q *ReceiptQueue) Enqueue(job jobs.Job) error {
	return q.queue.Enqueue(job)
}

func (q *ReceiptQueue) handle(ctx context.Context, job jobs.Job) error {
	if q.renderer == nil {
		return nil
	}
	return q.renderer.RenderReceiptJob(ctx, job)
}
