package model

// ID is the opaque, stable identifier assigned by the order store.
type ID = string

// Status is the production status of a work order.
type Status string

const (
	StatusProductive Status = "Productive"
	StatusRework     Status = "Rework"
)

// NormalizeStatus coerces arbitrary input to a valid status. Anything that
// is not exactly "Rework" counts as productive work.
func NormalizeStatus(s string) Status {
	if Status(s) == StatusRework {
		return StatusRework
	}
	return StatusProductive
}

// DueStatus is the calendar bucket an order's due date falls into.
type DueStatus string

const (
	DueOverdue DueStatus = "Overdue"
	DueNow     DueStatus = "Due Now"
	DueSoon    DueStatus = "Due Soon"
	DueLater   DueStatus = "Due Later"
)

type WorkOrder struct {
	ID        ID   `json:"id" db:"id"`
	CreatedAt Time `json:"createdAt" db:"created_at"`
	UpdatedAt Time `json:"updatedAt" db:"updated_at"`

	Number      string    `json:"number" db:"number"`
	Type        string    `json:"type" db:"type"`
	Status      Status    `json:"status" db:"status"`
	Description string    `json:"description" db:"description"`
	DueStatus   DueStatus `json:"dueStatus" db:"-"`

	StartDate Time `json:"startDate" db:"start_date"`
	DueDate   Time `json:"dueDate" db:"due_date"`

	Sessions       []WorkSession `json:"sessions" db:"-"`
	ActiveSessions []WorkSession `json:"activeSessions,omitempty" db:"-"`
}

// WorkSession is one contiguous interval of an employee working on an order.
// EndTime is nil while the session is open; Duration is whole seconds and is
// zero until the session closes.
type WorkSession struct {
	EmployeeName string `json:"employeeName" db:"employee_name"`
	StartTime    Time   `json:"startTime" db:"started_at"`
	EndTime      *Time  `json:"endTime" db:"ended_at"`
	Duration     int64  `json:"duration" db:"duration"`
}

// Open reports whether the session has not been closed yet.
func (s WorkSession) Open() bool {
	return s.EndTime == nil
}

// SameAs is the dedupe rule used when reconciling sessions from the store or
// a replayed event: two sessions are duplicates when start time and employee
// name match exactly.
func (s WorkSession) SameAs(other WorkSession) bool {
	return s.EmployeeName == other.EmployeeName && s.StartTime.Equal(other.StartTime.Time)
}

// OrderTime is the live-timer view of one order: accumulated seconds across
// all known sessions plus the ticking open session, if any.
type OrderTime struct {
	TotalSeconds          int64         `json:"totalSeconds"`
	CurrentSessionSeconds int64         `json:"currentSessionSeconds"`
	IsActive              bool          `json:"isActive"`
	EmployeeName          string        `json:"employeeName"`
	LastActiveDate        Time          `json:"lastActiveDate"`
	Sessions              []WorkSession `json:"sessions"`
	LastUpdate            Time          `json:"lastUpdate"`
}

// OpenSession returns a copy of the open session, if one exists.
func (ot OrderTime) OpenSession() (WorkSession, bool) {
	for i := len(ot.Sessions) - 1; i >= 0; i-- {
		if ot.Sessions[i].Open() {
			return ot.Sessions[i], true
		}
	}
	return WorkSession{}, false
}

// StatusUpdate is the payload of the orderStatusUpdate push event.
type StatusUpdate struct {
	OrderNumber  string `json:"orderNumber"`
	EmployeeName string `json:"employeeName"`
	IsActive     bool   `json:"isActive"`
	StartTime    *Time  `json:"startTime,omitempty"`
}

// SessionUpdate is the payload of the sessionUpdated push event.
type SessionUpdate struct {
	OrderNumber string      `json:"orderNumber"`
	Session     WorkSession `json:"session"`
}
