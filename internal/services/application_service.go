package services

import (
	"context"
	"fmt"
	"time"

	"jobfund/internal/core"
)

// ApplicationCommand carries the user-editable application fields.
// AppliedAt is optional; creation defaults it to the current time.
type ApplicationCommand struct {
	CompanyName string
	Position    string
	Platform    string
	Status      string
	AppliedAt   *time.Time
}

// ApplicationStats summarizes a user's applications per status.
type ApplicationStats struct {
	Total    int
	ByStatus map[core.ApplicationStatus]int
}

// ApplicationService manages job applications. Status transitions append
// to the immutable status history in the same storage transaction as the
// update itself.
type ApplicationService struct {
	store ApplicationStore
	now   func() time.Time
}

func NewApplicationService(store ApplicationStore) *ApplicationService {
	return &ApplicationService{store: store, now: time.Now}
}

// List returns all of the user's applications.
func (s *ApplicationService) List(ctx context.Context, userID int64) ([]core.Application, error) {
	return s.store.ListApplications(ctx, userID)
}

// Get returns one application with its status history.
func (s *ApplicationService) Get(ctx context.Context, userID, id int64) (*core.Application, error) {
	return s.store.GetApplication(ctx, userID, id)
}

// Create records a new application. An empty status defaults to applied.
func (s *ApplicationService) Create(ctx context.Context, userID int64, cmd ApplicationCommand) (*core.Application, error) {
	status := core.ApplicationStatus(cmd.Status)
	if cmd.Status == "" {
		status = core.StatusApplied
	}
	appliedAt := s.now()
	if cmd.AppliedAt != nil {
		appliedAt = *cmd.AppliedAt
	}

	app := &core.Application{
		UserID:      userID,
		CompanyName: cmd.CompanyName,
		Position:    cmd.Position,
		Platform:    cmd.Platform,
		Status:      status,
		AppliedAt:   appliedAt,
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.InsertApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// Update overwrites the editable fields. A status change made through
// update appends a history entry same as ChangeStatus.
func (s *ApplicationService) Update(ctx context.Context, userID, id int64, cmd ApplicationCommand) (*core.Application, error) {
	var updated *core.Application
	err := s.store.RunAtomically(ctx, func(ctx context.Context) error {
		app, err := s.store.GetApplication(ctx, userID, id)
		if err != nil {
			return err
		}
		app.CompanyName = cmd.CompanyName
		app.Position = cmd.Position
		app.Platform = cmd.Platform
		if cmd.AppliedAt != nil {
			app.AppliedAt = *cmd.AppliedAt
		}
		change, err := app.ChangeStatus(core.ApplicationStatus(cmd.Status), s.now())
		if err != nil {
			return err
		}
		if err := app.Validate(); err != nil {
			return err
		}
		if err := s.store.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if change != nil {
			if err := s.store.InsertStatusChange(ctx, app.ID, change); err != nil {
				return fmt.Errorf("insert status change: %w", err)
			}
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeStatus transitions an application and appends the audit entry
// atomically with the status write.
func (s *ApplicationService) ChangeStatus(ctx context.Context, userID, id int64, status string) (*core.Application, error) {
	var updated *core.Application
	err := s.store.RunAtomically(ctx, func(ctx context.Context) error {
		app, err := s.store.GetApplication(ctx, userID, id)
		if err != nil {
			return err
		}
		change, err := app.ChangeStatus(core.ApplicationStatus(status), s.now())
		if err != nil {
			return err
		}
		if change != nil {
			if err := s.store.UpdateApplication(ctx, app); err != nil {
				return fmt.Errorf("update application: %w", err)
			}
			if err := s.store.InsertStatusChange(ctx, app.ID, change); err != nil {
				return fmt.Errorf("insert status change: %w", err)
			}
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an application together with its history.
func (s *ApplicationService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteApplication(ctx, userID, id)
}

// Weekly lists applications submitted in the current ISO week.
func (s *ApplicationService) Weekly(ctx context.Context, userID int64) ([]core.Application, error) {
	start := core.StartOfWeek(s.now())
	return s.store.ListApplicationsInRange(ctx, userID, start, start.AddDate(0, 0, 7))
}

// Monthly lists applications submitted in the current calendar month.
func (s *ApplicationService) Monthly(ctx context.Context, userID int64) ([]core.Application, error) {
	start := core.StartOfMonth(s.now())
	return s.store.ListApplicationsInRange(ctx, userID, start, start.AddDate(0, 1, 0))
}

// Stats counts the user's applications per status.
func (s *ApplicationService) Stats(ctx context.Context, userID int64) (*ApplicationStats, error) {
	apps, err := s.store.ListApplications(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &ApplicationStats{
		Total:    len(apps),
		ByStatus: make(map[core.ApplicationStatus]int, len(core.ApplicationStatuses)),
	}
	for _, status := range core.ApplicationStatuses {
		stats.ByStatus[status] = 0
	}
	for _, app := range apps {
		stats.ByStatus[app.Status]++
	}
	return stats, nil
}
