// Package repository defines the progress store contract and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
)

// ProgressPatch is a field-path style partial update of a progress
// snapshot. IncrementAttempts is applied against the committed value at
// commit time, not read-modify-write on the caller side, so concurrent
// gradings of the same record never collapse into a single increment.
type ProgressPatch struct {
	Level             level.Level
	Score             *float64
	LastEvaluatorID   string
	UpdatedAt         time.Time
	IncrementAttempts int64
}

// Tx is one atomic scope against the store. Reads inside the scope are
// tracked; staged writes commit together or not at all. A conflicting
// writer causes the whole scope to be retried by RunTransaction.
type Tx interface {
	// Progress reads a snapshot by id. Returns ErrNotFound if absent.
	Progress(id string) (model.Progress, error)

	// Profile reads a user profile by id. Returns ErrNotFound if absent.
	Profile(id string) (model.Profile, error)

	// UpdateProgress stages a partial update of the snapshot fields.
	UpdateProgress(id string, patch ProgressPatch)

	// AppendHistory stages an append-only insert under the progress record.
	AppendHistory(progressID string, entry model.HistoryEntry)

	// SetEligibility stages field-level updates of the profile's
	// canEvaluate map; only the given keys are touched.
	SetEligibility(profileID string, flags map[string]bool)

	// ServerTime is the store-assigned timestamp for this attempt. All
	// writes in the scope that record a time must use it so they agree.
	ServerTime() time.Time
}

// Store provides keyed reads plus the transaction scope the grading
// engine runs in. Implementations must serialize concurrent transactions
// touching the same record: at most one winning writer, the loser seeing
// a retryable conflict rather than silent loss.
type Store interface {
	// Station reads one station by id. Returns ErrNotFound if absent.
	Station(ctx context.Context, id string) (model.Station, error)

	// Stations returns all stations sorted by ascending order value.
	Stations(ctx context.Context) ([]model.Station, error)

	// Profile reads one user profile by id. Returns ErrNotFound if absent.
	Profile(ctx context.Context, id string) (model.Profile, error)

	// Progress reads one snapshot by id. Returns ErrNotFound if absent.
	Progress(ctx context.Context, id string) (model.Progress, error)

	// TraineeProgress returns every snapshot owned by one trainee,
	// one keyed lookup rather than one read per station.
	TraineeProgress(ctx context.Context, traineeID string) ([]model.Progress, error)

	// History returns a snapshot's history entries, newest first.
	History(ctx context.Context, progressID string) ([]model.HistoryEntry, error)

	// RunTransaction executes fn in an atomic scope, retrying a bounded
	// number of times on conflict before returning ErrConflict.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}
