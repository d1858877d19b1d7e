package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/carefinder/internal/infra/config"
)

const (
	retryBodyLimit = 1 << 20
	maxRetryDelay  = 2 * time.Second
)

var errBodyTooLarge = errors.New("request body exceeds retry limit")

type replayKey struct{}

// isReplay reports whether r is a second or later attempt issued by withRetry.
func isReplay(r *http.Request) bool {
	replay, _ := r.Context().Value(replayKey{}).(bool)
	return replay
}

// withRetry replays GET and POST requests whose response is a transient
// upstream failure (502, 503 or 504). The body is buffered so each attempt
// sees the full payload. Excluded paths and other methods pass straight through.
func withRetry(next http.Handler, cfg config.RetryConfig, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return next
	}
	excluded := make(map[string]struct{}, len(cfg.Exclude))
	for _, path := range cfg.Exclude {
		excluded[path] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := excluded[r.URL.Path]; skip || !retryableMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		body, err := bufferBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}

		var attempt *bufferedResponse
		for n := 1; n <= cfg.MaxAttempts; n++ {
			if n > 1 {
				timer := time.NewTimer(backoff(cfg.BaseBackoff, n))
				select {
				case <-r.Context().Done():
					timer.Stop()
					attempt.flushTo(w)
					return
				case <-timer.C:
				}
			}

			attempt = newBufferedResponse()
			ctx := r.Context()
			if n > 1 {
				ctx = context.WithValue(ctx, replayKey{}, true)
			}
			replay := r.Clone(ctx)
			replay.Body = io.NopCloser(bytes.NewReader(body))
			replay.ContentLength = int64(len(body))
			next.ServeHTTP(attempt, replay)

			if !transientStatus(attempt.status) {
				break
			}
			if n < cfg.MaxAttempts {
				logger.Warn("transient failure, retrying request", "path", r.URL.Path, "status", attempt.status, "attempt", n)
			}
		}
		attempt.flushTo(w)
	})
}

func retryableMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodPost
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff doubles base for every attempt after the second, capped at maxRetryDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 2)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, retryBodyLimit+1))
	if err != nil {
		return nil, err
	}
	if len(data) > retryBodyLimit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// bufferedResponse holds one attempt's response until it is known to be final.
type bufferedResponse struct {
	header  http.Header
	body    bytes.Buffer
	status  int
	written bool
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.written {
		return
	}
	b.status = status
	b.written = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.written = true
	return b.body.Write(p)
}

func (b *bufferedResponse) Flush() {}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
