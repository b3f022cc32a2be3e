// Package ledger tracks the session history and live timer of a single work
// order: every closed work interval, at most one open interval, and the
// accumulated seconds across both.
package ledger

import (
	"time"

	"github.com/station42/shopfloor/internal/model"
)

// Ledger is the live-timer state of one order. All mutation goes through its
// methods; the registry serializes callers, so the ledger itself does no
// locking.
type Ledger struct {
	total        int64 // includes the open session's ticked seconds
	current      int64 // elapsed seconds of the open session
	active       bool
	employeeName string
	sessions     []model.WorkSession
	lastActive   time.Time
	lastUpdate   time.Time
}

func New() *Ledger {
	return &Ledger{}
}

// Start opens a new session for employee at now. Fails with ErrAlreadyActive
// if a session is already open; the ledger is left untouched in that case.
func (l *Ledger) Start(employee string, now time.Time) (model.WorkSession, error) {
	if l.active {
		return model.WorkSession{}, model.ErrAlreadyActive
	}

	now = now.Truncate(time.Second)
	sess := model.WorkSession{
		EmployeeName: employee,
		StartTime:    model.NewTime(now),
	}
	l.sessions = append(l.sessions, sess)
	l.active = true
	l.employeeName = employee
	l.current = 0
	l.lastActive = now
	l.lastUpdate = now
	return sess, nil
}

// Stop closes the open session at now and folds its exact duration into the
// total, replacing whatever the ticker had accumulated so scheduler lag never
// skews the closed total. Fails with ErrNoActiveSession if nothing is open.
func (l *Ledger) Stop(now time.Time) (model.WorkSession, error) {
	if !l.active {
		return model.WorkSession{}, model.ErrNoActiveSession
	}

	now = now.Truncate(time.Second)
	open := l.openSession()
	if open == nil {
		l.active = false
		l.employeeName = ""
		return model.WorkSession{}, model.ErrNoActiveSession
	}
	duration := int64(now.Sub(open.StartTime.Time) / time.Second)
	if duration < 0 {
		duration = 0
	}

	open.EndTime = model.NewTimeRef(now)
	open.Duration = duration

	l.total += duration - l.current
	l.current = 0
	l.active = false
	l.employeeName = ""
	l.lastUpdate = now
	return *open, nil
}

// Merge inserts a session learned from the store or a push event. Duplicate
// sessions (same start time and employee name) are discarded, which makes
// replayed and re-ordered deliveries safe to apply. Returns whether the
// session was new. Merging never toggles the active state; status updates
// own that transition.
func (l *Ledger) Merge(sess model.WorkSession) bool {
	for _, known := range l.sessions {
		if known.SameAs(sess) {
			return false
		}
	}

	l.sessions = append(l.sessions, sess)
	if !sess.Open() {
		l.total += sess.Duration
	}
	return true
}

// Tick advances the open session by the whole seconds elapsed since the last
// update. Sub-second remainders stay on the clock rather than being dropped,
// so irregular ticker wakeups neither drift nor double-count. No-op when
// inactive or when less than one second has passed.
func (l *Ledger) Tick(now time.Time) bool {
	if !l.active {
		return false
	}

	delta := int64(now.Sub(l.lastUpdate) / time.Second)
	if delta < 1 {
		return false
	}

	l.current += delta
	l.total += delta
	l.lastUpdate = l.lastUpdate.Add(time.Duration(delta) * time.Second)
	return true
}

// Resync rebuilds the ledger from the authoritative store: total is the sum
// of the provided closed-session durations, and an active descriptor seeds
// the open session with the seconds elapsed since it started.
func (l *Ledger) Resync(now time.Time, closed []model.WorkSession, active *model.WorkSession) {
	now = now.Truncate(time.Second)

	*l = Ledger{
		sessions:   make([]model.WorkSession, 0, len(closed)+1),
		lastUpdate: now,
		lastActive: now,
	}

	for _, sess := range closed {
		if sess.Open() {
			continue
		}
		l.sessions = append(l.sessions, sess)
		l.total += sess.Duration
	}

	if active != nil {
		elapsed := int64(now.Sub(active.StartTime.Time) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		l.sessions = append(l.sessions, model.WorkSession{
			EmployeeName: active.EmployeeName,
			StartTime:    active.StartTime,
		})
		l.active = true
		l.employeeName = active.EmployeeName
		l.current = elapsed
		l.total += elapsed
		l.lastActive = active.StartTime.Time
	}
}

// Active reports whether a session is open.
func (l *Ledger) Active() bool {
	return l.active
}

// State returns a display copy of the ledger.
func (l *Ledger) State() model.OrderTime {
	sessions := make([]model.WorkSession, len(l.sessions))
	copy(sessions, l.sessions)

	return model.OrderTime{
		TotalSeconds:          l.total,
		CurrentSessionSeconds: l.current,
		IsActive:              l.active,
		EmployeeName:          l.employeeName,
		LastActiveDate:        model.NewTime(l.lastActive),
		Sessions:              sessions,
		LastUpdate:            model.NewTime(l.lastUpdate),
	}
}

// openSession returns the most recent session without an end timestamp.
func (l *Ledger) openSession() *model.WorkSession {
	for i := len(l.sessions) - 1; i >= 0; i-- {
		if l.sessions[i].Open() {
			return &l.sessions[i]
		}
	}
	return nil
}
