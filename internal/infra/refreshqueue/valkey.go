package refreshqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

const (
	defaultQueueKey = "carefinder:jobs"
	pendingTTL      = 15 * time.Minute
	popErrorBackoff = time.Second
	releaseTimeout  = 2 * time.Second
)

type envelope struct {
	Name       string         `json:"name"`
	Payload    map[string]any `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
}

// jobList is the subset of list and key commands the queue issues.
type jobList interface {
	claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	release(ctx context.Context, key string) error
	push(ctx context.Context, key, value string) error
	pop(ctx context.Context, key string, timeout time.Duration) (string, bool, error)
}

type valkeyList struct {
	client valkey.Client
}

func (l valkeyList) claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := l.client.Do(ctx, l.client.B().Set().Key(key).Value("1").Nx().Ex(ttl).Build()).AsBool()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	return claimed, err
}

func (l valkeyList) release(ctx context.Context, key string) error {
	return l.client.Do(ctx, l.client.B().Del().Key(key).Build()).Error()
}

func (l valkeyList) push(ctx context.Context, key, value string) error {
	return l.client.Do(ctx, l.client.B().Lpush().Key(key).Element(value).Build()).Error()
}

func (l valkeyList) pop(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	values, err := l.client.Do(ctx, l.client.B().Brpop().Key(key).Timeout(timeout.Seconds()).Build()).ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(values) < 2 {
		return "", false, nil
	}
	raw, err := values[1].ToString()
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// ValkeyQueue is a Valkey list shared by every replica. A job name can be
// pending at most once: repeated enqueues while one is waiting are
// collapsed until a worker picks it up.
type ValkeyQueue struct {
	list        jobList
	key         string
	logger      *slog.Logger
	pollTimeout time.Duration

	handler  Handler
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewValkeyQueue constructs a Valkey-backed queue on key.
func NewValkeyQueue(client valkey.Client, key string, logger *slog.Logger) *ValkeyQueue {
	return newQueue(valkeyList{client: client}, key, logger)
}

func newQueue(list jobList, key string, logger *slog.Logger) *ValkeyQueue {
	if key == "" {
		key = defaultQueueKey
	}
	return &ValkeyQueue{
		list:        list,
		key:         key,
		logger:      logger.With("component", "refreshqueue.valkey", "queue", key),
		pollTimeout: 5 * time.Second,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (q *ValkeyQueue) pendingKey(name string) string {
	return q.key + ":pending:" + name
}

// SetHandler starts the single worker loop. Call it at most once.
func (q *ValkeyQueue) SetHandler(handler Handler) {
	if handler == nil {
		return
	}
	q.handler = handler
	go q.run()
}

// Enqueue pushes name unless the same job is already waiting. When the push
// fails the pending marker is released so the next request can retry.
func (q *ValkeyQueue) Enqueue(ctx context.Context, name string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(envelope{Name: name, Payload: payload, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	claimed, err := q.list.claim(ctx, q.pendingKey(name), pendingTTL)
	if err != nil {
		return err
	}
	if !claimed {
		q.logger.Debug("job already pending", "job", name)
		return nil
	}

	if err := q.list.push(ctx, q.key, string(raw)); err != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if relErr := q.list.release(releaseCtx, q.pendingKey(name)); relErr != nil {
			q.logger.Error("releasing pending marker failed", "job", name, "error", relErr)
			return errors.Join(err, relErr)
		}
		return err
	}
	return nil
}

// Close stops the worker and waits for the job in flight.
func (q *ValkeyQueue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	if q.handler != nil {
		<-q.done
	}
}

func (q *ValkeyQueue) run() {
	defer close(q.done)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-q.stop
		cancel()
	}()

	for ctx.Err() == nil {
		job, ok, err := q.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("valkey queue pop failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(popErrorBackoff):
			}
			continue
		}
		if !ok {
			continue
		}
		if err := q.list.release(ctx, q.pendingKey(job.Name)); err != nil {
			q.logger.Warn("clearing pending marker failed", "job", job.Name, "error", err)
		}
		q.logger.Info("job dequeued", "job", job.Name, "waited_ms", time.Since(job.EnqueuedAt).Milliseconds())
		q.handler(context.WithoutCancel(ctx), job.Name, job.Payload)
	}
}

// next blocks for up to pollTimeout. ok is false when nothing usable arrived.
func (q *ValkeyQueue) next(ctx context.Context) (envelope, bool, error) {
	raw, ok, err := q.list.pop(ctx, q.key, q.pollTimeout)
	if err != nil || !ok {
		return envelope{}, false, err
	}
	var job envelope
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Warn("valkey queue payload is not a job", "error", err)
		return envelope{}, false, nil
	}
	return job, true, nil
}

var (
	_ hospital.JobQueue = (*ValkeyQueue)(nil)
	_ HandlerQueue      = (*ValkeyQueue)(nil)
)
