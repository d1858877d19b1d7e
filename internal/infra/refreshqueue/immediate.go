package refreshqueue

import (
	"context"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	hospital.JobQueue
	SetHandler(handler Handler)
}

// Handler executes one delivered job.
type Handler func(ctx context.Context, name string, payload map[string]any)

// ImmediateQueue runs the handler in-process on enqueue.
type ImmediateQueue struct {
	handler Handler
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.handler = handler
}

// Enqueue invokes the handler asynchronously. The job outlives the caller's
// request, so it keeps the context values but not its cancellation.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	if q.handler == nil {
		return nil
	}
	go q.handler(context.WithoutCancel(ctx), name, payload)
	return nil
}

var _ hospital.JobQueue = (*ImmediateQueue)(nil)
var _ HandlerQueue = (*ImmediateQueue)(nil)
