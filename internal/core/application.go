package core

import (
	"strings"
	"time"
)

const (
	StatusApplied         ApplicationStatus = "applied"
	StatusRecruitmentTask ApplicationStatus = "recruitment_task"
	StatusInterview       ApplicationStatus = "interview"
	StatusGotJob          ApplicationStatus = "got_job"
	StatusRejected        ApplicationStatus = "rejected"
	StatusNoResponse      ApplicationStatus = "no_response"
)

// ApplicationStatus is the lifecycle state of a job application.
type ApplicationStatus string

// ApplicationStatuses lists all known statuses in lifecycle order.
var ApplicationStatuses = []ApplicationStatus{
	StatusApplied,
	StatusRecruitmentTask,
	StatusInterview,
	StatusGotJob,
	StatusRejected,
	StatusNoResponse,
}

// Valid reports whether s names a known application status.
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusChange is one append-only audit entry recording a status
// transition. Entries are never edited or deleted on their own; their
// lifecycle is tied to the owning application.
type StatusChange struct {
	ID        int64
	OldStatus ApplicationStatus
	NewStatus ApplicationStatus
	ChangedAt time.Time
}

// Application is one tracked job application.
type Application struct {
	ID          int64
	UserID      int64
	CompanyName string
	Position    string
	Platform    string
	Status      ApplicationStatus
	AppliedAt   time.Time
	History     []StatusChange
}

// Validate checks the application's user-supplied fields.
func (a *Application) Validate() error {
	if strings.TrimSpace(a.CompanyName) == "" {
		return ErrEmptyCompanyName
	}
	if strings.TrimSpace(a.Position) == "" {
		return ErrEmptyPosition
	}
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ChangeStatus moves the application to a new status and, when the status
// actually changes, appends an audit entry. Returns the appended entry or
// nil when the status was already current.
func (a *Application) ChangeStatus(status ApplicationStatus, now time.Time) (*StatusChange, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if a.Status == status {
		return nil, nil
	}
	change := StatusChange{
		OldStatus: a.Status,
		NewStatus: status,
		ChangedAt: now,
	}
	a.Status = status
	a.History = append(a.History, change)
	return &a.History[len(a.History)-1], nil
}
