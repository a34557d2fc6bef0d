package repository

import (
	"alcyxob/exercise-catalog/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate record")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ExerciseRepository defines the interface for the exercise record store.
//
// Read scopes are explicit per method: GetByID sees every record regardless
// of its active flag (a soft-deleted record stays fetchable by id), while
// the Find* scans and ActiveNameExists only see active records. The
// check-then-insert race on names is closed store-side (unique index in the
// Mongo implementation), not by this interface.
type ExerciseRepository interface {
	// Insert stores a new record and returns its generated id.
	Insert(ctx context.Context, exercise *domain.Exercise) (string, error)
	// GetByID fetches one record by id, active or not.
	GetByID(ctx context.Context, id string) (*domain.Exercise, error)
	// UpdateFields applies a partial $set-style update to exactly the given
	// fields and refreshes updatedAt, then returns the updated record.
	UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.Exercise, error)
	// SetActive flips the soft-delete flag. Idempotent: flipping to the
	// current value still succeeds.
	SetActive(ctx context.Context, id string, active bool) error

	// FindActive returns all active records, newest first.
	FindActive(ctx context.Context) ([]domain.Exercise, error)
	// FindActiveByNameSubstring returns active records whose name contains
	// the substring, case-insensitively.
	FindActiveByNameSubstring(ctx context.Context, substring string) ([]domain.Exercise, error)
	// FindActiveIn returns active records whose given attribute is a member
	// of the token set. field is one of "muscleGroup", "difficulty",
	// "equipment".
	FindActiveIn(ctx context.Context, field string, tokens []string) ([]domain.Exercise, error)

	// ActiveNameExists reports whether another active record already holds
	// the name (case-insensitive). excludeID is skipped, empty on create.
	ActiveNameExists(ctx context.Context, name string, excludeID string) (bool, error)
}
