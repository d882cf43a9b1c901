// Package executor drives a workload.Generator's RequestPlan sequence
// against a system under test with a bounded concurrency, producing
// Observations for the Metrics Collector.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/workload"
)

// Config parameterises a single Executor.Run invocation.
type Config struct {
	BaseURL     string
	DBPrefix    string
	Concurrency int
	Timeout     time.Duration
	// GracePeriod bounds how long Run waits for in-flight requests to
	// settle after ctx is cancelled, before forcing a partial snapshot.
	GracePeriod time.Duration
}

// DefaultTimeout matches the specification's default per-request deadline.
const DefaultTimeout = 30 * time.Second

// DefaultGracePeriod is the maximum time Run waits for in-flight requests to
// settle after external cancellation.
const DefaultGracePeriod = 5 * time.Second

// Executor issues HTTP requests for a workload.Generator's plans under a
// bounded in-flight count.
type Executor struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// New constructs an Executor. A single *http.Client is shared across all
// in-flight requests, matching net/http's own connection-pooling design.
func New(cfg Config, log zerolog.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Executor{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// Result is the outcome of one Run invocation.
type Result struct {
	Interrupted bool
	Issued      int64
	OK          int64
	Failed      int64
}

// ProgressFunc is invoked once per completed request, in completion order
// (not issuance order) — used to drive a progress bar without coupling the
// Executor to any particular UI library.
type ProgressFunc func(metrics.Observation)

// Run drives gen to exhaustion (or until ctx is cancelled), folding every
// Observation into collector. It never returns an error for per-request
// failures; those become classified Observations. Run only returns a
// non-nil error for an InvariantViolation-class programming error.
func (e *Executor) Run(ctx context.Context, gen *workload.Generator, cat *catalog.Catalogue, collector *metrics.Collector, onProgress ProgressFunc) (Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	var issued, ok, failed int64
	interrupted := false

	for {
		select {
		case <-ctx.Done():
			interrupted = true
		default:
		}
		if interrupted {
			break
		}

		plan, more := gen.Next()
		if !more {
			break
		}

		g.Go(func() error {
			obs := e.issue(gctx, plan, cat)
			atomic.AddInt64(&issued, 1)
			switch obs.Outcome {
			case metrics.OK:
				atomic.AddInt64(&ok, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
			kind, _ := cat.Lookup(obs.KindID)
			collector.Fold(obs, kind.Category)
			if onProgress != nil {
				onProgress(obs)
			}
			return nil
		})
	}

	if interrupted {
		graceCtx, cancel := context.WithTimeout(context.Background(), e.cfg.GracePeriod)
		defer cancel()
		done := make(chan struct{})
		go func() {
			_ = g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-graceCtx.Done():
			e.log.Warn().Msg("executor: grace period elapsed with requests still in flight")
		}
		collector.SetInterrupted()
	} else {
		if err := g.Wait(); err != nil {
			return Result{}, fmt.Errorf("executor: invariant violation: %w", err)
		}
	}

	return Result{
		Interrupted: interrupted,
		Issued:      atomic.LoadInt64(&issued),
		OK:          atomic.LoadInt64(&ok),
		Failed:      atomic.LoadInt64(&failed),
	}, nil
}

func (e *Executor) issue(ctx context.Context, plan workload.RequestPlan, cat *catalog.Catalogue) metrics.Observation {
	start := time.Now()
	url := e.cfg.BaseURL + plan.Kind.BuildPath(e.cfg.DBPrefix, plan.Value)

	var body []byte
	if plan.Payload != nil {
		body, _ = json.Marshal(plan.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, plan.Kind.Method, url, bytes.NewReader(body))
	if err != nil {
		return e.observationFor(plan, start, metrics.TransportError, 0, 0)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		outcome := metrics.TransportError
		if ctx.Err() == context.DeadlineExceeded || isTimeoutErr(err) {
			outcome = metrics.Timeout
		}
		e.log.Debug().Str("kind", plan.Kind.ID).Err(err).Msg("executor: request failed")
		return e.observationFor(plan, start, outcome, 0, latency.Nanoseconds())
	}
	defer resp.Body.Close()

	size, _ := io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return e.observationFor(plan, start, metrics.HTTPError, resp.StatusCode, latency.Nanoseconds())
	}

	obs := e.observationFor(plan, start, metrics.OK, resp.StatusCode, latency.Nanoseconds())
	obs.RespBytes = size
	return obs
}

func (e *Executor) observationFor(plan workload.RequestPlan, start time.Time, outcome metrics.Outcome, status int, latencyNanos int64) metrics.Observation {
	return metrics.Observation{
		KindID:       plan.Kind.ID,
		StartNanos:   start.UnixNano(),
		LatencyNanos: latencyNanos,
		Outcome:      outcome,
		HTTPStatus:   status,
	}
}

func isTimeoutErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
