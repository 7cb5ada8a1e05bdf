// Package forecast runs simulations for the UI and shapes their results into
// chart-ready views.
package forecast

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/starford/tortoise/internal/models"
)

// DefaultMinVisible is how long a run stays in flight at least, so a loading
// indicator does not flicker.
const DefaultMinVisible = 250 * time.Millisecond

// Backend is the part of the account service the runner needs.
type Backend interface {
	CashFlows(ctx context.Context, name string) ([]models.CashFlow, error)
	SimulateAccount(ctx context.Context, name, portfolio string) (models.SimulationResult, error)
	SimulateScenario(ctx context.Context, names []string) (*models.ScenarioResult, error)
}

// Event phases.
const (
	PhaseStarted  = "started"
	PhaseFinished = "finished"
)

// Event describes a run starting or finishing.
type Event struct {
	RunID  string        `json:"run_id"`
	Kind   string        `json:"kind"` // "account" or "scenario"
	Target string        `json:"target"`
	Phase  string        `json:"phase"`
	Error  string        `json:"error,omitempty"`
	Took   time.Duration `json:"took,omitempty"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithMinVisible sets the minimum run duration. Zero disables padding.
func WithMinVisible(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.minVisible = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver registers a callback for run events.
func WithObserver(fn func(Event)) Option {
	return func(r *Runner) { r.observer = fn }
}

// Runner executes forecasts. Identical requests made while one is in flight
// share its backend call.
type Runner struct {
	backend    Backend
	minVisible time.Duration
	logger     *slog.Logger
	observer   func(Event)

	group    singleflight.Group
	inflight atomic.Int32
}

// NewRunner creates a runner over backend.
func NewRunner(backend Backend, opts ...Option) *Runner {
	r := &Runner{
		backend:    backend,
		minVisible: DefaultMinVisible,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// InFlight reports whether any run is in progress.
func (r *Runner) InFlight() bool {
	return r.inflight.Load() > 0
}

// AccountRequest selects the account forecast to run.
type AccountRequest struct {
	Name      string
	Portfolio string
	Anonymize bool
}

type accountOutcome struct {
	result    models.SimulationResult
	cashFlows []models.CashFlow
}

// Account forecasts one stored account.
func (r *Runner) Account(ctx context.Context, req AccountRequest) (*AccountView, error) {
	key := "account\x00" + req.Name + "\x00" + req.Portfolio
	v, runID, err := r.run(ctx, "account", req.Name, key, func(ctx context.Context) (any, error) {
		res, err := r.backend.SimulateAccount(ctx, req.Name, req.Portfolio)
		if err != nil {
			return nil, err
		}
		cfs, err := r.backend.CashFlows(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		return accountOutcome{result: res, cashFlows: cfs}, nil
	})
	if err != nil {
		return nil, err
	}
	out := v.(accountOutcome)
	return newAccountView(runID, req, out.result, out.cashFlows), nil
}

// Scenario forecasts several stored accounts together.
func (r *Runner) Scenario(ctx context.Context, names []string) (*ScenarioView, error) {
	key := "scenario\x00" + strings.Join(names, "\x00")
	v, runID, err := r.run(ctx, "scenario", strings.Join(names, ","), key, func(ctx context.Context) (any, error) {
		return r.backend.SimulateScenario(ctx, names)
	})
	if err != nil {
		return nil, err
	}
	return newScenarioView(runID, v.(*models.ScenarioResult)), nil
}

// run executes fn under singleflight, keeps the in-flight flag raised for at
// least minVisible and reports start and finish to the observer.
func (r *Runner) run(ctx context.Context, kind, target, key string, fn func(context.Context) (any, error)) (any, string, error) {
	runID := uuid.NewString()
	start := time.Now()
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	r.emit(Event{RunID: runID, Kind: kind, Target: target, Phase: PhaseStarted})
	r.logger.Debug("forecast: started",
		slog.String("run_id", runID),
		slog.String("kind", kind),
		slog.String("target", target))

	// The shared call outlives a caller that gives up; the engine client
	// bounds it with its own timeout.
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) { return fn(detached) })

	var (
		v      any
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}

	if wait := r.minVisible - time.Since(start); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	took := time.Since(start)
	ev := Event{RunID: runID, Kind: kind, Target: target, Phase: PhaseFinished, Took: took}
	if err != nil {
		ev.Error = err.Error()
		r.logger.Error("forecast: failed",
			slog.String("run_id", runID),
			slog.String("kind", kind),
			slog.String("target", target),
			slog.String("error", err.Error()))
	} else {
		r.logger.Info("forecast: finished",
			slog.String("run_id", runID),
			slog.String("kind", kind),
			slog.String("target", target),
			slog.Bool("shared", shared),
			slog.Duration("took", took))
	}
	r.emit(ev)
	return v, runID, err
}

func (r *Runner) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}
