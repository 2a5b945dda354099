package monitoring

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guarzo/sellerpulse/internal/errs"
	"github.com/guarzo/sellerpulse/internal/logging"
	"github.com/guarzo/sellerpulse/internal/metrics"
	"github.com/guarzo/sellerpulse/internal/model"
	"github.com/guarzo/sellerpulse/internal/store"
)

// DefaultMonitoringInterval applies when a session is started without one
const DefaultMonitoringInterval = time.Hour

// UpdateSpec is a request to defer a listing update
type UpdateSpec struct {
	ItemID        string                 `validate:"required"`
	UpdateType    string                 `validate:"required"`
	ScheduledTime time.Time              `validate:"required"`
	UpdateData    map[string]interface{} `validate:"-"`
}

// MonitoringOptions tunes a monitoring session
type MonitoringOptions struct {
	Platform string
	Interval time.Duration
}

// Scheduler stores update and monitoring intents. It runs nothing itself;
// the pump polls DueSchedules and DueSessions and acts on them.
type Scheduler struct {
	updates         store.Store[model.ScheduledUpdate]
	sessions        store.Store[model.MonitoringSession]
	validate        *validator.Validate
	defaultInterval time.Duration
	defaultPlatform string
	now             func() time.Time
	log             zerolog.Logger
}

// SchedulerOptions configures a Scheduler. Nil stores get in-memory ones.
type SchedulerOptions struct {
	Updates         store.Store[model.ScheduledUpdate]
	Sessions        store.Store[model.MonitoringSession]
	DefaultInterval time.Duration
	DefaultPlatform string
	Now             func() time.Time
}

// NewScheduler creates a scheduler
func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.Updates == nil {
		opts.Updates = store.NewMemory[model.ScheduledUpdate]()
	}
	if opts.Sessions == nil {
		opts.Sessions = store.NewMemory[model.MonitoringSession]()
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = DefaultMonitoringInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		updates:         opts.Updates,
		sessions:        opts.Sessions,
		validate:        validator.New(),
		defaultInterval: opts.DefaultInterval,
		defaultPlatform: opts.DefaultPlatform,
		now:             opts.Now,
		log:             logging.Component("scheduler"),
	}
}

// ScheduleUpdate stores a new update with status scheduled
func (s *Scheduler) ScheduleUpdate(spec UpdateSpec) (*model.ScheduledUpdate, error) {
	if err := s.validate.Struct(spec); err != nil {
		return nil, errs.Wrap(errs.Validation, "schedule update", err)
	}

	update := model.ScheduledUpdate{
		ScheduleID:    "sched_" + uuid.NewString(),
		ItemID:        spec.ItemID,
		UpdateType:    spec.UpdateType,
		ScheduledTime: spec.ScheduledTime.UTC(),
		UpdateData:    spec.UpdateData,
		Status:        model.ScheduleScheduled,
		CreatedAt:     s.now().UTC(),
	}
	s.updates.Put(update.ScheduleID, update)
	s.refreshGauges()

	s.log.Info().
		Str("schedule_id", update.ScheduleID).
		Str("item_id", update.ItemID).
		Str("update_type", update.UpdateType).
		Time("scheduled_time", update.ScheduledTime).
		Msg("update scheduled")
	return &update, nil
}

// GetActiveSchedules returns scheduled updates whose time is still ahead
func (s *Scheduler) GetActiveSchedules() []model.ScheduledUpdate {
	now := s.now()
	return s.filterUpdates(func(u model.ScheduledUpdate) bool {
		return u.Status == model.ScheduleScheduled && u.ScheduledTime.After(now)
	})
}

// DueSchedules returns scheduled updates whose time has arrived by now
func (s *Scheduler) DueSchedules(now time.Time) []model.ScheduledUpdate {
	return s.filterUpdates(func(u model.ScheduledUpdate) bool {
		return u.Status == model.ScheduleScheduled && !u.ScheduledTime.After(now)
	})
}

// Schedule returns one stored update
func (s *Scheduler) Schedule(id string) (*model.ScheduledUpdate, error) {
	update, ok := s.updates.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "schedule", "schedule %s not found", id)
	}
	return &update, nil
}

// CancelUpdate moves a scheduled update to cancelled
func (s *Scheduler) CancelUpdate(id, reason string) (*model.ScheduledUpdate, error) {
	return s.transition(id, model.ScheduleCancelled, reason)
}

// MarkExecuted moves a scheduled update to executed
func (s *Scheduler) MarkExecuted(id string) (*model.ScheduledUpdate, error) {
	return s.transition(id, model.ScheduleExecuted, "")
}

func (s *Scheduler) transition(id string, to model.ScheduleStatus, reason string) (*model.ScheduledUpdate, error) {
	var from model.ScheduleStatus
	update, ok := s.updates.Update(id, func(u *model.ScheduledUpdate) bool {
		from = u.Status
		if u.Status != model.ScheduleScheduled {
			return false
		}
		u.Status = to
		u.Reason = reason
		return true
	})
	if !ok {
		return nil, errs.New(errs.NotFound, "schedule", "schedule %s not found", id)
	}
	if from != model.ScheduleScheduled {
		return nil, errs.New(errs.Validation, "schedule",
			"schedule %s is %s, cannot move to %s", id, from, to)
	}
	s.refreshGauges()

	s.log.Info().
		Str("schedule_id", id).
		Str("status", string(to)).
		Str("reason", reason).
		Msg("schedule updated")
	return &update, nil
}

// StartCompetitorMonitoring registers an active session for searchTerm. The
// first check is due one interval after the session starts.
func (s *Scheduler) StartCompetitorMonitoring(searchTerm string, opts MonitoringOptions) (*model.MonitoringSession, error) {
	if searchTerm == "" {
		return nil, errs.New(errs.Validation, "start monitoring", "search term is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = s.defaultInterval
	}
	if opts.Platform == "" {
		opts.Platform = s.defaultPlatform
	}

	now := s.now().UTC()
	session := model.MonitoringSession{
		SessionID:  "monitor_" + uuid.NewString(),
		Platform:   opts.Platform,
		SearchTerm: searchTerm,
		Interval:   opts.Interval,
		Status:     model.SessionActive,
		StartedAt:  now,
		LastCheck:  now,
	}
	s.sessions.Put(session.SessionID, session)
	s.refreshGauges()

	s.log.Info().
		Str("session_id", session.SessionID).
		Str("platform", session.Platform).
		Str("search_term", searchTerm).
		Dur("interval", session.Interval).
		Msg("competitor monitoring started")
	return &session, nil
}

// ResumeCompetitorMonitoring returns the active session for the same platform
// and search term if one exists, and otherwise starts a new one. The bool
// reports whether an existing session was reused.
func (s *Scheduler) ResumeCompetitorMonitoring(searchTerm string, opts MonitoringOptions) (*model.MonitoringSession, bool, error) {
	platformName := opts.Platform
	if platformName == "" {
		platformName = s.defaultPlatform
	}
	for _, m := range s.ActiveSessions() {
		if m.Platform == platformName && m.SearchTerm == searchTerm {
			s.log.Debug().
				Str("session_id", m.SessionID).
				Str("search_term", searchTerm).
				Msg("resuming competitor monitoring")
			return &m, true, nil
		}
	}
	session, err := s.StartCompetitorMonitoring(searchTerm, opts)
	return session, false, err
}

// StopMonitoring stops an active session. Stopping a stopped session is a no-op.
func (s *Scheduler) StopMonitoring(id string) (*model.MonitoringSession, error) {
	session, ok := s.sessions.Update(id, func(m *model.MonitoringSession) bool {
		if m.Status == model.SessionStopped {
			return false
		}
		m.Status = model.SessionStopped
		return true
	})
	if !ok {
		return nil, errs.New(errs.NotFound, "monitoring", "session %s not found", id)
	}
	s.refreshGauges()
	return &session, nil
}

// RecordCheck notes that a session was checked at `at`, with baselineID as
// the snapshot the next check compares against.
func (s *Scheduler) RecordCheck(id string, at time.Time, baselineID string) (*model.MonitoringSession, error) {
	session, ok := s.sessions.Update(id, func(m *model.MonitoringSession) bool {
		m.LastCheck = at.UTC()
		if baselineID != "" {
			m.BaselineID = baselineID
		}
		return true
	})
	if !ok {
		return nil, errs.New(errs.NotFound, "monitoring", "session %s not found", id)
	}
	return &session, nil
}

// Session returns one monitoring session
func (s *Scheduler) Session(id string) (*model.MonitoringSession, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "monitoring", "session %s not found", id)
	}
	return &session, nil
}

// ActiveSessions returns every active session in start order
func (s *Scheduler) ActiveSessions() []model.MonitoringSession {
	return s.filterSessions(func(m model.MonitoringSession) bool {
		return m.Status == model.SessionActive
	})
}

// DueSessions returns active sessions whose next check is owed at now
func (s *Scheduler) DueSessions(now time.Time) []model.MonitoringSession {
	return s.filterSessions(func(m model.MonitoringSession) bool {
		return m.Due(now)
	})
}

// Clear drops every update and session
func (s *Scheduler) Clear() {
	s.updates.Clear()
	s.sessions.Clear()
	s.refreshGauges()
}

func (s *Scheduler) filterUpdates(keep func(model.ScheduledUpdate) bool) []model.ScheduledUpdate {
	out := []model.ScheduledUpdate{}
	for _, u := range s.updates.List() {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Scheduler) filterSessions(keep func(model.MonitoringSession) bool) []model.MonitoringSession {
	out := []model.MonitoringSession{}
	for _, m := range s.sessions.List() {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *Scheduler) refreshGauges() {
	pending := 0
	for _, u := range s.updates.List() {
		if u.Status == model.ScheduleScheduled {
			pending++
		}
	}
	metrics.PendingScheduledUpdates.Set(float64(pending))

	active := 0
	for _, m := range s.sessions.List() {
		if m.Status == model.SessionActive {
			active++
		}
	}
	metrics.ActiveMonitoringSessions.Set(float64(active))
}
