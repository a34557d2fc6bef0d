// Package memory provides an in-memory ExerciseRepository with the same
// contract as the MongoDB implementation, including active-name uniqueness
// enforced at insert/update time. Used by service and handler tests; no
// production wiring depends on it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"alcyxob/exercise-catalog/internal/domain"
	"alcyxob/exercise-catalog/internal/repository"

	"github.com/google/uuid"
)

// ExerciseRepository is a mutex-guarded map of records.
type ExerciseRepository struct {
	mu        sync.Mutex
	exercises map[string]domain.Exercise
	seq       int
}

// NewExerciseRepository creates an empty in-memory repository.
func NewExerciseRepository() *ExerciseRepository {
	return &ExerciseRepository{exercises: make(map[string]domain.Exercise)}
}

// Insert stores a new record, enforcing active-name uniqueness the way the
// Mongo partial unique index does.
func (r *ExerciseRepository) Insert(ctx context.Context, exercise *domain.Exercise) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lower := strings.ToLower(exercise.Name)
	for _, existing := range r.exercises {
		if existing.IsActive && existing.NameLower == lower {
			return "", repository.ErrDuplicate
		}
	}

	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	exercise.NameLower = lower
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	exercise.IsActive = true

	// Monotonic tiebreaker so newest-first ordering is stable even when
	// two inserts land on the same clock tick.
	r.seq++
	exercise.CreatedAt = exercise.CreatedAt.Add(time.Duration(r.seq) * time.Nanosecond)

	r.exercises[exercise.ID] = *exercise
	return exercise.ID, nil
}

// GetByID fetches one record, active or not.
func (r *ExerciseRepository) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exercise, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &exercise, nil
}

// UpdateFields applies a partial update to exactly the supplied fields.
func (r *ExerciseRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exercise, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	for key, value := range fields {
		switch key {
		case "name":
			exercise.Name = value.(string)
			exercise.NameLower = strings.ToLower(exercise.Name)
		case "muscleGroup":
			exercise.MuscleGroup = value.(domain.MuscleGroup)
		case "secondaryMuscles":
			exercise.SecondaryMuscles = value.([]domain.MuscleGroup)
		case "difficulty":
			exercise.Difficulty = value.(domain.Difficulty)
		case "equipment":
			exercise.Equipment = value.(domain.Equipment)
		case "image":
			if value == nil {
				exercise.Image = nil
			} else {
				ref := value.(domain.ImageRef)
				exercise.Image = &ref
			}
		case "idealAngles":
			exercise.IdealAngles = value
		case "commonMistakes":
			exercise.CommonMistakes = value
		case "isActive":
			exercise.IsActive = value.(bool)
		}
	}

	// Mirror the store-side unique index: the updated record may not share
	// its name with another active record, whether the update changed the
	// name or reactivated the record.
	if exercise.IsActive {
		for _, other := range r.exercises {
			if other.ID != id && other.IsActive && other.NameLower == exercise.NameLower {
				return nil, repository.ErrDuplicate
			}
		}
	}
	exercise.UpdatedAt = time.Now().UTC()

	r.exercises[id] = exercise
	return &exercise, nil
}

// SetActive flips the soft-delete flag, idempotently.
func (r *ExerciseRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exercise, ok := r.exercises[id]
	if !ok {
		return repository.ErrNotFound
	}
	exercise.IsActive = active
	exercise.UpdatedAt = time.Now().UTC()
	r.exercises[id] = exercise
	return nil
}

// FindActive returns all active records, newest first.
func (r *ExerciseRepository) FindActive(ctx context.Context) ([]domain.Exercise, error) {
	return r.scan(func(e domain.Exercise) bool { return true }), nil
}

// FindActiveByNameSubstring returns active records whose name contains the
// substring, case-insensitively.
func (r *ExerciseRepository) FindActiveByNameSubstring(ctx context.Context, substring string) ([]domain.Exercise, error) {
	needle := strings.ToLower(substring)
	return r.scan(func(e domain.Exercise) bool {
		return strings.Contains(e.NameLower, needle)
	}), nil
}

// FindActiveIn returns active records whose field value is in the token set.
func (r *ExerciseRepository) FindActiveIn(ctx context.Context, field string, tokens []string) ([]domain.Exercise, error) {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return r.scan(func(e domain.Exercise) bool {
		var value string
		switch field {
		case "muscleGroup":
			value = string(e.MuscleGroup)
		case "difficulty":
			value = string(e.Difficulty)
		case "equipment":
			value = string(e.Equipment)
		default:
			return false
		}
		_, ok := set[value]
		return ok
	}), nil
}

// ActiveNameExists reports whether another active record holds the name.
func (r *ExerciseRepository) ActiveNameExists(ctx context.Context, name string, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lower := strings.ToLower(strings.TrimSpace(name))
	for _, exercise := range r.exercises {
		if exercise.ID == excludeID {
			continue
		}
		if exercise.IsActive && exercise.NameLower == lower {
			return true, nil
		}
	}
	return false, nil
}

func (r *ExerciseRepository) scan(match func(domain.Exercise) bool) []domain.Exercise {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []domain.Exercise
	for _, exercise := range r.exercises {
		if exercise.IsActive && match(exercise) {
			results = append(results, exercise)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results
}
