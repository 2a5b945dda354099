// Package pump drives the scheduler's stored intents. On every cron tick it
// executes due scheduled updates and runs due competitor-monitoring checks.
package pump

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guarzo/sellerpulse/internal/connector"
	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/monitoring"
)

// DefaultSpec polls once a minute
const DefaultSpec = "@every 1m"

// Executor applies a due scheduled update
type Executor interface {
	Execute(ctx context.Context, update model.ScheduledUpdate) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, update model.ScheduledUpdate) error

func (f ExecutorFunc) Execute(ctx context.Context, update model.ScheduledUpdate) error {
	return f(ctx, update)
}

// ReadOnlyExecutor refuses every update. Connectors are read-only, so this is
// the default; refused updates are cancelled.
var ReadOnlyExecutor = ExecutorFunc(func(ctx context.Context, update model.ScheduledUpdate) error {
	return connector.RefuseWrite("apply " + update.UpdateType + " update to " + update.ItemID)
})

// ChangeHandler receives the changes found by one monitoring check
type ChangeHandler func(session model.MonitoringSession, changes []model.CompetitorChange)

// Snapshotter creates, looks up and drops competitor snapshots
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, platformName, searchTerm string) (*model.CompetitorSnapshot, error)
	Snapshot(id string) (*model.CompetitorSnapshot, error)
	DeleteSnapshot(id string) bool
}

// Options configures a Pump
type Options struct {
	// Spec is a cron spec or descriptor such as "@every 30s"
	Spec      string
	Executor  Executor
	OnChanges ChangeHandler
	// Timeout bounds one tick
	Timeout time.Duration
	Now     func() time.Time
}

// TickResult counts what one tick did
type TickResult struct {
	Executed  int
	Cancelled int
	Deferred  int
	Checked   int
	Changes   int
	Failed    int
}

// Pump polls a Scheduler on a cron schedule
type Pump struct {
	scheduler *monitoring.Scheduler
	snapshots Snapshotter
	executor  Executor
	onChanges ChangeHandler
	timeout   time.Duration
	now       func() time.Time
	cron      *cron.Cron
	log       zerolog.Logger

	mu   sync.Mutex
	last TickResult
}

// New creates a pump. The schedule is validated here; nothing runs until Start.
func New(scheduler *monitoring.Scheduler, snapshots Snapshotter, opts Options) (*Pump, error) {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Executor == nil {
		opts.Executor = ReadOnlyExecutor
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := logging.Component("pump")
	p := &Pump{
		scheduler: scheduler,
		snapshots: snapshots,
		executor:  opts.Executor,
		onChanges: opts.OnChanges,
		timeout:   opts.Timeout,
		now:       opts.Now,
		log:       log,
	}

	cronLog := cronLogger{log: log}
	p.cron = cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := p.cron.AddFunc(opts.Spec, p.run); err != nil {
		return nil, errs.Wrap(errs.Configuration, "pump schedule", fmt.Errorf("%q: %w", opts.Spec, err))
	}
	return p, nil
}

// Start runs the cron scheduler in its own goroutine
func (p *Pump) Start() {
	p.cron.Start()
	p.log.Info().Msg("pump started")
}

// Stop stops scheduling and returns a context done when a running tick ends
func (p *Pump) Stop() context.Context {
	ctx := p.cron.Stop()
	p.log.Info().Msg("pump stopped")
	return ctx
}

// LastTick returns the result of the most recent tick
func (p *Pump) LastTick() TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pump) run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.Tick(ctx)
}

// Tick runs one polling pass
func (p *Pump) Tick(ctx context.Context) TickResult {
	now := p.now()
	var result TickResult

	for _, update := range p.scheduler.DueSchedules(now) {
		if ctx.Err() != nil {
			break
		}
		p.executeUpdate(ctx, update, &result)
	}

	for _, session := range p.scheduler.DueSessions(now) {
		if ctx.Err() != nil {
			break
		}
		p.checkSession(ctx, session, now, &result)
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	p.log.Debug().
		Int("executed", result.Executed).
		Int("cancelled", result.Cancelled).
		Int("deferred", result.Deferred).
		Int("checked", result.Checked).
		Int("changes", result.Changes).
		Int("failed", result.Failed).
		Msg("tick complete")
	return result
}

func (p *Pump) executeUpdate(ctx context.Context, update model.ScheduledUpdate, result *TickResult) {
	err := p.executor.Execute(ctx, update)
	switch {
	case err == nil:
		if _, err := p.scheduler.MarkExecuted(update.ScheduleID); err != nil {
			p.log.Warn().Err(err).Str("schedule_id", update.ScheduleID).Msg("could not mark update executed")
			result.Failed++
			return
		}
		result.Executed++

	case errs.Is(err, errs.ReadOnlyViolation):
		// never retried
		if _, cerr := p.scheduler.CancelUpdate(update.ScheduleID, err.Error()); cerr != nil {
			p.log.Warn().Err(cerr).Str("schedule_id", update.ScheduleID).Msg("could not cancel update")
			result.Failed++
			return
		}
		p.log.Warn().Err(err).Str("schedule_id", update.ScheduleID).Msg("update refused by read-only connector, cancelled")
		result.Cancelled++

	default:
		p.log.Warn().Err(err).Str("schedule_id", update.ScheduleID).Msg("update failed, will retry next tick")
		result.Deferred++
	}
}

func (p *Pump) checkSession(ctx context.Context, session model.MonitoringSession, now time.Time, result *TickResult) {
	current, err := p.snapshots.CreateSnapshot(ctx, session.Platform, session.SearchTerm)
	if err != nil {
		p.log.Warn().Err(err).
			Str("session_id", session.SessionID).
			Str("search_term", session.SearchTerm).
			Msg("monitoring check failed")
		result.Failed++
		return
	}

	if session.BaselineID != "" {
		baseline, err := p.snapshots.Snapshot(session.BaselineID)
		if err != nil {
			p.log.Warn().Err(err).Str("session_id", session.SessionID).Msg("baseline snapshot missing, starting a new baseline")
		} else {
			changes := monitoring.Diff(baseline, current)
			result.Changes += len(changes)
			if len(changes) > 0 && p.onChanges != nil {
				p.onChanges(session, changes)
			}
		}
	}

	if _, err := p.scheduler.RecordCheck(session.SessionID, now, current.SnapshotID); err != nil {
		p.log.Warn().Err(err).Str("session_id", session.SessionID).Msg("could not record check")
		result.Failed++
		return
	}
	// only the latest capture is ever compared against again
	if session.BaselineID != "" && session.BaselineID != current.SnapshotID {
		p.snapshots.DeleteSnapshot(session.BaselineID)
	}
	result.Checked++
}

// cronLogger routes the cron library's logging through zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
