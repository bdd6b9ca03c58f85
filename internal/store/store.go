package store

import (
	"context"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlite, postgres).
// Save and Update are durable before returning.
type Store interface {
	Recordings() Recordings
	Pending() Pending
	Approved() Approved
	Confirmed() Confirmed
}

// RecordingUpdate carries the partial fields Update may change. Nil fields
// are left untouched.
type RecordingUpdate struct {
	Transcript *model.Transcript
	State      *model.TranscriptionState
}

type Recordings interface {
	Save(ctx context.Context, r *model.Recording) (*model.Recording, error)
	// List returns all recordings ordered by creation time descending.
	List(ctx context.Context) ([]*model.Recording, error)
	// ListByDate filters by local-naive day (YYYY-MM-DD).
	ListByDate(ctx context.Context, date string) ([]*model.Recording, error)
	Get(ctx context.Context, id string) (*model.Recording, error)
	Update(ctx context.Context, id string, upd RecordingUpdate) (*model.Recording, error)
	// Delete is idempotent: deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Pending persists the singleton in-review schedule so a reload resumes
// exactly where the user left off.
type Pending interface {
	Put(ctx context.Context, s *model.PendingSchedule) error
	Get(ctx context.Context) (*model.PendingSchedule, error)
	Delete(ctx context.Context) error
}

// Approved is the append-only archive of individually approved entries.
type Approved interface {
	Append(ctx context.Context, e *model.ApprovedEntry) (*model.ApprovedEntry, error)
	List(ctx context.Context) ([]*model.ApprovedEntry, error)
	Delete(ctx context.Context, id string) error
}

// Confirmed is the append-only archive of whole-day schedule snapshots.
type Confirmed interface {
	Append(ctx context.Context, s *model.ConfirmedSchedule) (*model.ConfirmedSchedule, error)
	List(ctx context.Context) ([]*model.ConfirmedSchedule, error)
	Get(ctx context.Context, id string) (*model.ConfirmedSchedule, error)
	Delete(ctx context.Context, id string) error
}
