package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"alcyxob/exercise-catalog/internal/domain"
	"alcyxob/exercise-catalog/internal/filter"
	"alcyxob/exercise-catalog/internal/repository/memory"
	"alcyxob/exercise-catalog/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStorage records uploads, presigns and deletions without touching S3.
// Presigned URLs use a distinct host so tests can tell them apart from the
// canonical object URLs returned by Upload.
type stubStorage struct {
	uploaded  []string
	presigned []string
	deleted   []string
}

func (s *stubStorage) Upload(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error) {
	s.uploaded = append(s.uploaded, objectKey)
	return "https://cdn.test/" + objectKey, nil
}

func (s *stubStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	s.presigned = append(s.presigned, objectKey)
	return "https://signed.test/" + objectKey, nil
}

func (s *stubStorage) DeleteObject(ctx context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func anyPtr(v any) *any { return &v }

func musclesPtr(values ...string) *[]string { return &values }

func createPayload(name string) validation.Payload {
	return validation.Payload{
		Name:           strPtr(name),
		MuscleGroup:    strPtr("pierna"),
		Difficulty:     strPtr("principiante"),
		Equipment:      strPtr("cuerpo"),
		IdealAngles:    anyPtr(map[string]any{"rodilla": 90.0}),
		CommonMistakes: anyPtr([]any{"curvar la espalda"}),
	}
}

func newTestService() (ExerciseService, *memory.ExerciseRepository, *stubStorage) {
	repo := memory.NewExerciseRepository()
	store := &stubStorage{}
	return NewExerciseService(repo, store), repo, store
}

func mustCreate(t *testing.T, svc ExerciseService, name string) *domain.Exercise {
	t.Helper()
	exercise, err := svc.CreateExercise(context.Background(), createPayload(name), nil)
	require.NoError(t, err)
	return exercise
}

func TestCreateExercise(t *testing.T) {
	svc, _, _ := newTestService()

	exercise := mustCreate(t, svc, "Sentadilla")
	assert.NotEmpty(t, exercise.ID)
	assert.Equal(t, "Sentadilla", exercise.Name)
	assert.True(t, exercise.IsActive)
	assert.False(t, exercise.CreatedAt.IsZero())
	assert.False(t, exercise.UpdatedAt.IsZero())
}

func TestCreateExerciseValidationFailure(t *testing.T) {
	svc, _, _ := newTestService()

	payload := createPayload("Sentadilla")
	payload.SecondaryMuscles = musclesPtr("pierna")

	_, err := svc.CreateExercise(context.Background(), payload, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("secondaryMuscles"))
}

func TestCreateExerciseUniquenessUnderSoftDelete(t *testing.T) {
	svc, _, _ := newTestService()

	first := mustCreate(t, svc, "Sentadilla")

	// Trimmed, case-insensitive duplicate while the first is active.
	_, err := svc.CreateExercise(context.Background(), createPayload("sentadilla "), nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("name"))

	// Soft-deleting the first frees the name.
	require.NoError(t, svc.SoftDeleteExercise(context.Background(), first.ID))
	second, err := svc.CreateExercise(context.Background(), createPayload("sentadilla "), nil)
	require.NoError(t, err)
	assert.Equal(t, "sentadilla", second.Name)
}

func TestCreateExerciseWithImage(t *testing.T) {
	svc, _, store := newTestService()

	image := &ImageUpload{
		Filename:    "squat.png",
		Size:        2048,
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader("fake-png-bytes")),
	}
	exercise, err := svc.CreateExercise(context.Background(), createPayload("Sentadilla"), image)
	require.NoError(t, err)
	require.NotNil(t, exercise.Image)
	assert.True(t, strings.HasPrefix(exercise.Image.Key, "exercises/"))
	assert.True(t, strings.HasSuffix(exercise.Image.Key, ".png"))
	assert.Len(t, store.uploaded, 1)

	// The returned URL is a presigned download URL, not the stored object
	// URL, so private buckets work.
	assert.Equal(t, "https://signed.test/"+exercise.Image.Key, exercise.Image.URL)
}

func TestReadPathsHandOutPresignedImageURLs(t *testing.T) {
	svc, _, store := newTestService()

	image := &ImageUpload{
		Filename:    "squat.png",
		Size:        2048,
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader("fake-png-bytes")),
	}
	created, err := svc.CreateExercise(context.Background(), createPayload("Sentadilla"), image)
	require.NoError(t, err)
	key := created.Image.Key

	got, err := svc.GetExerciseByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.test/"+key, got.Image.URL)

	list, err := svc.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://signed.test/"+key, list[0].Image.URL)

	found, err := svc.SearchByName(context.Background(), "senta")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "https://signed.test/"+key, found[0].Image.URL)

	found, err = svc.FilterByMuscleGroup(context.Background(), []string{"pierna"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "https://signed.test/"+key, found[0].Image.URL)

	assert.NotEmpty(t, store.presigned)
}

func TestImageRejectedWhenStorageNotConfigured(t *testing.T) {
	svc := NewExerciseService(memory.NewExerciseRepository(), nil)

	// Size and extension are fine; only storage is missing.
	image := &ImageUpload{
		Filename:    "squat.png",
		Size:        2048,
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader("fake")),
	}
	_, err := svc.CreateExercise(context.Background(), createPayload("Sentadilla"), image)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("image"))
}

func TestCreateExerciseOversizedImageNotUploaded(t *testing.T) {
	svc, _, store := newTestService()

	image := &ImageUpload{
		Filename:    "squat.png",
		Size:        validation.MaxImageBytes + 1,
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader("fake")),
	}
	_, err := svc.CreateExercise(context.Background(), createPayload("Sentadilla"), image)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("image"))
	assert.Empty(t, store.uploaded, "rejected images must never reach storage")
}

func TestGetExerciseByID(t *testing.T) {
	svc, _, _ := newTestService()

	created := mustCreate(t, svc, "Sentadilla")
	got, err := svc.GetExerciseByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetExerciseByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestSoftDeletePreservesRecordButHidesItFromScans(t *testing.T) {
	svc, _, _ := newTestService()

	kept := mustCreate(t, svc, "Sentadilla")
	deleted := mustCreate(t, svc, "Peso Muerto")

	require.NoError(t, svc.SoftDeleteExercise(context.Background(), deleted.ID))

	// Point lookup still serves the record, data intact.
	got, err := svc.GetExerciseByID(context.Background(), deleted.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Peso Muerto", got.Name)

	// But every scan path excludes it.
	list, err := svc.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	found, err := svc.SearchByName(context.Background(), "peso")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.FilterByMuscleGroup(context.Background(), []string{"pierna"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, kept.ID, found[0].ID)
}

func TestSoftDeleteIdempotent(t *testing.T) {
	svc, _, _ := newTestService()

	exercise := mustCreate(t, svc, "Sentadilla")
	require.NoError(t, svc.SoftDeleteExercise(context.Background(), exercise.ID))
	require.NoError(t, svc.SoftDeleteExercise(context.Background(), exercise.ID))

	got, err := svc.GetExerciseByID(context.Background(), exercise.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, svc.SoftDeleteExercise(context.Background(), "missing"), ErrExerciseNotFound)
}

func TestUpdateExercisePartial(t *testing.T) {
	svc, _, _ := newTestService()

	created := mustCreate(t, svc, "Sentadilla")

	payload := validation.Payload{Difficulty: strPtr("avanzado")}
	updated, err := svc.UpdateExercise(context.Background(), created.ID, payload, nil)
	require.NoError(t, err)

	// Exactly the supplied field changed.
	assert.Equal(t, domain.DifficultyAvanzado, updated.Difficulty)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.MuscleGroup, updated.MuscleGroup)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestUpdateExerciseEmptyIdealAnglesRejected(t *testing.T) {
	svc, _, _ := newTestService()

	created := mustCreate(t, svc, "Sentadilla")

	payload := validation.Payload{IdealAngles: anyPtr(map[string]any{})}
	_, err := svc.UpdateExercise(context.Background(), created.ID, payload, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("idealAngles"))
}

func TestUpdateReactivatesSoftDeletedExercise(t *testing.T) {
	svc, _, _ := newTestService()

	created := mustCreate(t, svc, "Sentadilla")
	require.NoError(t, svc.SoftDeleteExercise(context.Background(), created.ID))

	updated, err := svc.UpdateExercise(context.Background(), created.ID,
		validation.Payload{IsActive: boolPtr(true)}, nil)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	// Back in every scan path.
	list, err := svc.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	// isActive=false through the update path behaves like a delete.
	_, err = svc.UpdateExercise(context.Background(), created.ID,
		validation.Payload{IsActive: boolPtr(false)}, nil)
	require.NoError(t, err)
	list, err = svc.ListExercises(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateReactivationBlockedWhenNameWasTaken(t *testing.T) {
	svc, _, _ := newTestService()

	first := mustCreate(t, svc, "Sentadilla")
	require.NoError(t, svc.SoftDeleteExercise(context.Background(), first.ID))

	// The name was freed by the soft delete and claimed by a new record.
	mustCreate(t, svc, "Sentadilla")

	_, err := svc.UpdateExercise(context.Background(), first.ID,
		validation.Payload{IsActive: boolPtr(true)}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("isActive"))

	// Reactivating under a fresh name works.
	updated, err := svc.UpdateExercise(context.Background(), first.ID,
		validation.Payload{IsActive: boolPtr(true), Name: strPtr("Sentadilla Bulgara")}, nil)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "Sentadilla Bulgara", updated.Name)
}

func TestUpdateExerciseNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateExercise(context.Background(), "missing", validation.Payload{Name: strPtr("X")}, nil)
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestUpdateExerciseReplacesImage(t *testing.T) {
	svc, _, store := newTestService()

	first := &ImageUpload{
		Filename:    "v1.png",
		Size:        100,
		ContentType: "image/png",
		Body:        io.NopCloser(strings.NewReader("v1")),
	}
	created, err := svc.CreateExercise(context.Background(), createPayload("Sentadilla"), first)
	require.NoError(t, err)

	second := &ImageUpload{
		Filename:    "v2.jpg",
		Size:        100,
		ContentType: "image/jpeg",
		Body:        io.NopCloser(strings.NewReader("v2")),
	}
	updated, err := svc.UpdateExercise(context.Background(), created.ID, validation.Payload{}, second)
	require.NoError(t, err)
	require.NotNil(t, updated.Image)
	assert.NotEqual(t, created.Image.Key, updated.Image.Key)
	assert.Equal(t, []string{created.Image.Key}, store.deleted)
}

func TestSearchByName(t *testing.T) {
	svc, _, _ := newTestService()

	mustCreate(t, svc, "Sentadilla Bulgara")
	mustCreate(t, svc, "Press Banca")

	found, err := svc.SearchByName(context.Background(), "SENTA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sentadilla Bulgara", found[0].Name)

	_, err = svc.SearchByName(context.Background(), "  ")
	var ferr *filter.Error
	require.ErrorAs(t, err, &ferr)
	assert.True(t, ferr.Missing)
}

func TestFilterByMuscleGroupUnion(t *testing.T) {
	svc, _, _ := newTestService()

	legs := mustCreate(t, svc, "Sentadilla")

	chest := createPayload("Press Banca")
	chest.MuscleGroup = strPtr("pecho")
	_, err := svc.CreateExercise(context.Background(), chest, nil)
	require.NoError(t, err)

	glutes := createPayload("Hip Thrust")
	glutes.MuscleGroup = strPtr("gluteo")
	created, err := svc.CreateExercise(context.Background(), glutes, nil)
	require.NoError(t, err)

	found, err := svc.FilterByMuscleGroup(context.Background(), []string{"pierna,gluteo"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	ids := []string{found[0].ID, found[1].ID}
	assert.Contains(t, ids, legs.ID)
	assert.Contains(t, ids, created.ID)
}

func TestFilterByMuscleGroupInvalidTokens(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.FilterByMuscleGroup(context.Background(), []string{"pierna,xyz"})
	var ferr *filter.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, []string{"xyz"}, ferr.Invalid)
	assert.Len(t, ferr.Options, 8)

	_, err = svc.FilterByMuscleGroup(context.Background(), nil)
	require.ErrorAs(t, err, &ferr)
	assert.True(t, ferr.Missing)
}

func TestFilterByDifficultyAndEquipment(t *testing.T) {
	svc, _, _ := newTestService()

	mustCreate(t, svc, "Sentadilla") // principiante / cuerpo

	advanced := createPayload("Snatch")
	advanced.Difficulty = strPtr("avanzado")
	advanced.Equipment = strPtr("gimnasio")
	_, err := svc.CreateExercise(context.Background(), advanced, nil)
	require.NoError(t, err)

	found, err := svc.FilterByDifficulty(context.Background(), []string{"avanzado"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Snatch", found[0].Name)

	found, err = svc.FilterByEquipment(context.Background(), []string{"cuerpo", "bandas"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sentadilla", found[0].Name)

	var ferr *filter.Error
	_, err = svc.FilterByEquipment(context.Background(), []string{"barra"})
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, []string{"barra"}, ferr.Invalid)
	assert.Len(t, ferr.Options, 4)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()

	mustCreate(t, svc, "Primero")
	mustCreate(t, svc, "Segundo")

	list, err := svc.ListExercises(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Segundo", list[0].Name)
	assert.Equal(t, "Primero", list[1].Name)
}

// racingRepo simulates a concurrent create winning the race: the
// uniqueness check sees a free name but the insert hits the unique index.
type racingRepo struct {
	*memory.ExerciseRepository
}

func (r racingRepo) ActiveNameExists(ctx context.Context, name string, excludeID string) (bool, error) {
	return false, nil
}

func TestConcurrentDuplicateSurfacesAsValidationError(t *testing.T) {
	repo := memory.NewExerciseRepository()
	svc := NewExerciseService(racingRepo{repo}, &stubStorage{})

	// The repository's duplicate error must come back as a field error,
	// not a 500.
	_, err := repo.Insert(context.Background(), &domain.Exercise{
		Name:           "Sentadilla",
		MuscleGroup:    domain.MusclePierna,
		Difficulty:     domain.DifficultyPrincipiante,
		Equipment:      domain.EquipmentCuerpo,
		IdealAngles:    map[string]any{"rodilla": 90.0},
		CommonMistakes: []any{"x"},
	})
	require.NoError(t, err)

	_, err = svc.CreateExercise(context.Background(), createPayload("Sentadilla"), nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assert.True(t, verr.Fields.Has("name"))
}

func TestUpdateConcurrentDuplicateSurfacesAsValidationError(t *testing.T) {
	repo := memory.NewExerciseRepository()
	svc := NewExerciseService(racingRepo{repo}, &stubStorage{})

	seed := func(name string) string {
		id, err := repo.Insert(context.Background(), &domain.Exercise{
			Name:           name,
			MuscleGroup:    domain.MusclePierna,
			Difficulty:     domain.DifficultyPrincipiante,
			Equipment:      domain.EquipmentCuerpo,
			IdealAngles:    map[string]any{"rodilla": 90.0},
			CommonMistakes: []any{"x"},
		})
		require.NoError(t, err)
		return id
	}
	seed("Sentadilla")
	target := seed("Peso Muerto")

	// The uniqueness check misses the race; the store's unique index must
	// still come back as a field error, same as on create.
	_, err := svc.UpdateExercise(context.Background(), target,
		validation.Payload{Name: strPtr("Sentadilla")}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("name"))
}
