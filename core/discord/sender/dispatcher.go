// Package sender runs detached outbound Discord calls, such as follow-up
// deliveries, after the immediate interaction response has been written.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yarumotors/bot/core/logger"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("discord sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("discord sender: queue full")

	// webhookTokenRe matches interaction tokens embedded in follow-up URLs.
	webhookTokenRe = regexp.MustCompile(`webhooks/([0-9]+)/[A-Za-z0-9_.\-]+`)
	botTokenRe     = regexp.MustCompile(`Bot [A-Za-z0-9_.\-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize int
	Workers   int
	// MaxDuration bounds a single job.
	MaxDuration time.Duration
}

// RunFunc performs one outbound call.
type RunFunc func(ctx context.Context) error

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	queued   time.Time
	run      RunFunc
}

// Dispatcher executes jobs on a fixed worker pool. Every job runs at most
// once: failures are logged and never retried.
type Dispatcher struct {
	opts   Options
	jobs   chan job
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
	drops  atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}

	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	logger.Debug(context.Background(), logger.CompSender, "sender.start",
		slog.Int("queue_len", opts.QueueSize),
		slog.Int("workers", opts.Workers),
	)
	return d
}

// Enqueue schedules run without waiting for it. The job keeps ctx's values
// (rid, interaction meta) but not its cancellation, so it outlives the request.
// A full or closed queue drops the job and reports why.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run RunFunc) error {
	if run == nil {
		return errors.New("discord sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{
		ctx:      context.WithoutCancel(ctx),
		action:   action,
		endpoint: redact(endpoint),
		queued:   time.Now(),
		run:      run,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logDrop(j, ErrQueueClosed)
		return ErrQueueClosed
	}
	select {
	case d.jobs <- j:
		return nil
	default:
		d.logDrop(j, ErrQueueFull)
		return ErrQueueFull
	}
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// DropCount returns the number of jobs rejected by Enqueue.
func (d *Dispatcher) DropCount() uint64 {
	return d.drops.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	wait := start.Sub(j.queued)
	logger.Debug(ctx, logger.CompSender, "send.start", append(sendLogAttrs(j),
		slog.Duration("queue_wait", wait),
	)...)

	err := d.run(ctx, j)
	if err != nil {
		d.errs.Add(1)
		logSendFailure(ctx, j, err, time.Since(start))
		return
	}
	logger.Info(ctx, logger.CompSender, "send.success", append(sendLogAttrs(j),
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)...)
}

// run shields the worker from panicking jobs.
func (d *Dispatcher) run(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return j.run(ctx)
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("job panic: %v", e.value) }

func (d *Dispatcher) logDrop(j job, reason error) {
	d.drops.Add(1)
	logger.Warn(j.ctx, logger.CompSender, "queue.drop", append(sendLogAttrs(j),
		slog.String("status", "drop"),
		slog.String("cause", reason.Error()),
		slog.Int("queue_len", len(d.jobs)),
	)...)
}

func sendLogAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("operation", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("path", j.endpoint))
	}
	return attrs
}

func logSendFailure(ctx context.Context, j job, err error, elapsed time.Duration) {
	attrs := append(sendLogAttrs(j),
		slog.String("status", "fail"),
		slog.String("err", redact(err.Error())),
		slog.String("err_code", classifyError(err)),
		slog.Duration("duration", logger.RoundMS(elapsed)),
		slog.Bool("retryable", false),
	)
	if status := httpStatusFromError(err); status != 0 {
		attrs = append(attrs, slog.Int("http_code", status))
	}
	logger.Error(ctx, logger.CompSender, "send.fail", attrs...)
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return "panic"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		if kind := classifyError(urlErr.Err); kind != "unknown" {
			return kind
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status >= 500:
		return "http_5xx"
	case status == 429:
		return "rate_limited"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// redact masks interaction webhook tokens and bot tokens.
func redact(msg string) string {
	msg = webhookTokenRe.ReplaceAllString(msg, "webhooks/$1/<redacted>")
	return botTokenRe.ReplaceAllString(msg, "Bot <redacted>")
}

// httpStatusFromError extracts a status from errors exposing StatusCode(),
// such as the follow-up client's StatusError.
func httpStatusFromError(err error) int {
	type statusCoder interface{ StatusCode() int }
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
