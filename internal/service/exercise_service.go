package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"alcyxob/exercise-catalog/internal/domain"
	"alcyxob/exercise-catalog/internal/filter"
	"alcyxob/exercise-catalog/internal/repository"
	"alcyxob/exercise-catalog/internal/storage"
	"alcyxob/exercise-catalog/internal/validation"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound = errors.New("exercise not found")
)

// ValidationError carries the per-field error map produced by the
// validation pipeline. The transport layer renders it as a 400 body.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "exercise validation failed"
}

// ImageUpload is an incoming image file, decoupled from the multipart form.
// The caller owns closing Body.
type ImageUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.ReadCloser
}

// Filter axes, one per enumerated attribute. Built once at startup from the
// closed enum tables.
var (
	muscleGroupAxis = filter.Axis{Param: "muscle_group", Options: domain.MuscleGroupTokens()}
	difficultyAxis  = filter.Axis{Param: "difficulty", Options: domain.DifficultyTokens()}
	equipmentAxis   = filter.Axis{Param: "equipment", Options: domain.EquipmentTokens()}
)

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, payload validation.Payload, image *ImageUpload) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error)
	ListExercises(ctx context.Context) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, id string, payload validation.Payload, image *ImageUpload) (*domain.Exercise, error)
	SoftDeleteExercise(ctx context.Context, id string) error
	SearchByName(ctx context.Context, rawName string) ([]domain.Exercise, error)
	FilterByMuscleGroup(ctx context.Context, rawValues []string) ([]domain.Exercise, error)
	FilterByDifficulty(ctx context.Context, rawValues []string) ([]domain.Exercise, error)
	FilterByEquipment(ctx context.Context, rawValues []string) ([]domain.Exercise, error)
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	pipeline     *validation.Pipeline
	fileStorage  storage.FileStorage
}

// NewExerciseService creates a new instance of exerciseService. fileStorage
// may be nil when image uploads are not configured; payloads carrying an
// image are then rejected at the field level.
func NewExerciseService(exerciseRepo repository.ExerciseRepository, fileStorage storage.FileStorage) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		pipeline:     validation.NewPipeline(exerciseRepo),
		fileStorage:  fileStorage,
	}
}

// CreateExercise validates a full payload, uploads the image if one was
// supplied, and inserts the record.
func (s *exerciseService) CreateExercise(ctx context.Context, payload validation.Payload, image *ImageUpload) (*domain.Exercise, error) {
	if image != nil {
		payload.Image = &validation.ImageMeta{Filename: image.Filename, Size: image.Size}
	}

	normalized, fieldErrs, err := s.pipeline.ValidateCreate(ctx, payload)
	if err != nil {
		return nil, err
	}
	if image != nil && s.fileStorage == nil {
		fieldErrs.Add("image", "image uploads are not configured")
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	exercise := &domain.Exercise{
		Name:           *normalized.Name,
		MuscleGroup:    *normalized.MuscleGroup,
		Difficulty:     *normalized.Difficulty,
		Equipment:      *normalized.Equipment,
		IdealAngles:    *normalized.IdealAngles,
		CommonMistakes: *normalized.CommonMistakes,
	}
	if normalized.SecondaryMuscles != nil {
		exercise.SecondaryMuscles = *normalized.SecondaryMuscles
	}

	if image != nil {
		ref, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		exercise.Image = ref
	}

	id, err := s.exerciseRepo.Insert(ctx, exercise)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent create won the race after our uniqueness check.
			fe := validation.FieldErrors{}
			fe.Add("name", "an active exercise with this name already exists")
			return nil, &ValidationError{Fields: fe}
		}
		return nil, err
	}

	// Fetch again so repo-assigned fields (timestamps) come back populated.
	created, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.presentImage(ctx, created)
	return created, nil
}

// GetExerciseByID retrieves a single exercise by id. Soft-deleted records
// are still returned: deletion hides them from lists, not from point reads.
func (s *exerciseService) GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	s.presentImage(ctx, exercise)
	return exercise, nil
}

// ListExercises returns all active exercises, newest first.
func (s *exerciseService) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	exercises, err := s.exerciseRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	s.presentImages(ctx, exercises)
	return exercises, nil
}

// UpdateExercise validates a partial payload against the stored record and
// applies exactly the supplied fields.
func (s *exerciseService) UpdateExercise(ctx context.Context, id string, payload validation.Payload, image *ImageUpload) (*domain.Exercise, error) {
	existing, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	if image != nil {
		payload.Image = &validation.ImageMeta{Filename: image.Filename, Size: image.Size}
	}

	normalized, fieldErrs, err := s.pipeline.ValidateUpdate(ctx, payload, existing)
	if err != nil {
		return nil, err
	}
	if image != nil && s.fileStorage == nil {
		fieldErrs.Add("image", "image uploads are not configured")
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	fields := map[string]any{}
	if normalized.Name != nil {
		fields["name"] = *normalized.Name
	}
	if normalized.MuscleGroup != nil {
		fields["muscleGroup"] = *normalized.MuscleGroup
	}
	if normalized.SecondaryMuscles != nil {
		fields["secondaryMuscles"] = *normalized.SecondaryMuscles
	}
	if normalized.Difficulty != nil {
		fields["difficulty"] = *normalized.Difficulty
	}
	if normalized.Equipment != nil {
		fields["equipment"] = *normalized.Equipment
	}
	if normalized.IdealAngles != nil {
		fields["idealAngles"] = *normalized.IdealAngles
	}
	if normalized.CommonMistakes != nil {
		fields["commonMistakes"] = *normalized.CommonMistakes
	}
	if normalized.IsActive != nil {
		fields["isActive"] = *normalized.IsActive
	}

	if image != nil {
		ref, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		fields["image"] = *ref
		if existing.Image != nil && s.fileStorage != nil {
			// Best effort: a stale object is preferable to a failed update.
			if err := s.fileStorage.DeleteObject(ctx, existing.Image.Key); err != nil {
				log.Printf("WARN: Failed to delete replaced image '%s': %v", existing.Image.Key, err)
			}
		}
	}

	if len(fields) == 0 {
		s.presentImage(ctx, existing)
		return existing, nil
	}

	updated, err := s.exerciseRepo.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		if errors.Is(err, repository.ErrDuplicate) {
			// Same race as on create: the unique index saw an active
			// holder of the name after our check passed.
			fe := validation.FieldErrors{}
			fe.Add("name", "an active exercise with this name already exists")
			return nil, &ValidationError{Fields: fe}
		}
		return nil, err
	}
	s.presentImage(ctx, updated)
	return updated, nil
}

// SoftDeleteExercise marks an exercise inactive. Repeating the call on an
// already-inactive record still succeeds.
func (s *exerciseService) SoftDeleteExercise(ctx context.Context, id string) error {
	err := s.exerciseRepo.SetActive(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	return nil
}

// SearchByName returns active exercises whose name contains the trimmed
// substring, case-insensitively.
func (s *exerciseService) SearchByName(ctx context.Context, rawName string) ([]domain.Exercise, error) {
	term, ferr := filter.SearchTerm(rawName)
	if ferr != nil {
		return nil, ferr
	}
	exercises, err := s.exerciseRepo.FindActiveByNameSubstring(ctx, term)
	if err != nil {
		return nil, err
	}
	s.presentImages(ctx, exercises)
	return exercises, nil
}

// FilterByMuscleGroup returns active exercises whose muscle group is a
// member of the requested token set.
func (s *exerciseService) FilterByMuscleGroup(ctx context.Context, rawValues []string) ([]domain.Exercise, error) {
	return s.filterBy(ctx, muscleGroupAxis, "muscleGroup", rawValues)
}

// FilterByDifficulty returns active exercises matching any requested
// difficulty token.
func (s *exerciseService) FilterByDifficulty(ctx context.Context, rawValues []string) ([]domain.Exercise, error) {
	return s.filterBy(ctx, difficultyAxis, "difficulty", rawValues)
}

// FilterByEquipment returns active exercises matching any requested
// equipment token.
func (s *exerciseService) FilterByEquipment(ctx context.Context, rawValues []string) ([]domain.Exercise, error) {
	return s.filterBy(ctx, equipmentAxis, "equipment", rawValues)
}

func (s *exerciseService) filterBy(ctx context.Context, axis filter.Axis, field string, rawValues []string) ([]domain.Exercise, error) {
	tokens, ferr := axis.Validate(filter.Tokens(rawValues))
	if ferr != nil {
		return nil, ferr
	}
	exercises, err := s.exerciseRepo.FindActiveIn(ctx, field, tokens)
	if err != nil {
		return nil, err
	}
	s.presentImages(ctx, exercises)
	return exercises, nil
}

// presentImage swaps the stored canonical object URL for a short-lived
// presigned download URL, so reads work against private buckets. A presign
// failure keeps the stored URL.
func (s *exerciseService) presentImage(ctx context.Context, exercise *domain.Exercise) {
	if exercise == nil || exercise.Image == nil || s.fileStorage == nil {
		return
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, exercise.Image.Key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		log.Printf("WARN: Failed to presign image '%s': %v", exercise.Image.Key, err)
		return
	}
	exercise.Image = &domain.ImageRef{Key: exercise.Image.Key, URL: url}
}

func (s *exerciseService) presentImages(ctx context.Context, exercises []domain.Exercise) {
	for i := range exercises {
		s.presentImage(ctx, &exercises[i])
	}
}

func (s *exerciseService) uploadImage(ctx context.Context, image *ImageUpload) (*domain.ImageRef, error) {
	if s.fileStorage == nil {
		return nil, errors.New("image storage is not configured")
	}
	idx := strings.LastIndex(image.Filename, ".")
	ext := strings.ToLower(image.Filename[idx+1:])
	key := fmt.Sprintf("exercises/%s.%s", uuid.NewString(), ext)

	url, err := s.fileStorage.Upload(ctx, key, image.ContentType, image.Body)
	if err != nil {
		return nil, err
	}
	return &domain.ImageRef{Key: key, URL: url}, nil
}
