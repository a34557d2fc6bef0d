package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"alcyxob/exercise-catalog/internal/domain"
	"alcyxob/exercise-catalog/internal/filter"
	"alcyxob/exercise-catalog/internal/service"
	"alcyxob/exercise-catalog/internal/validation"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseResponse is the full view of a stored exercise, returned by
// create, get and update.
type ExerciseResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	MuscleGroup      string    `json:"muscleGroup"`
	SecondaryMuscles []string  `json:"secondaryMuscles"`
	Difficulty       string    `json:"difficulty"`
	Equipment        string    `json:"equipment"`
	ImageURL         *string   `json:"imageUrl"`
	IdealAngles      any       `json:"idealAngles"`
	CommonMistakes   any       `json:"commonMistakes"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ExerciseSummaryResponse is the list view: enum values mapped to their
// display labels, no structured payloads.
type ExerciseSummaryResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	MuscleGroup      string   `json:"muscleGroupDisplay"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	Difficulty       string   `json:"difficultyDisplay"`
	Equipment        string   `json:"equipmentDisplay"`
	ImageURL         *string  `json:"imageUrl"`
}

// MapExerciseToResponse converts a domain.Exercise to the full view.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	secondaries := make([]string, len(ex.SecondaryMuscles))
	for i, m := range ex.SecondaryMuscles {
		secondaries[i] = string(m)
	}
	return ExerciseResponse{
		ID:               ex.ID,
		Name:             ex.Name,
		MuscleGroup:      string(ex.MuscleGroup),
		SecondaryMuscles: secondaries,
		Difficulty:       string(ex.Difficulty),
		Equipment:        string(ex.Equipment),
		ImageURL:         imageURL(ex),
		IdealAngles:      ex.IdealAngles,
		CommonMistakes:   ex.CommonMistakes,
		IsActive:         ex.IsActive,
		CreatedAt:        ex.CreatedAt,
		UpdatedAt:        ex.UpdatedAt,
	}
}

// MapExerciseToSummary converts a domain.Exercise to the list view.
func MapExerciseToSummary(ex *domain.Exercise) ExerciseSummaryResponse {
	secondaries := make([]string, len(ex.SecondaryMuscles))
	for i, m := range ex.SecondaryMuscles {
		secondaries[i] = m.Display()
	}
	return ExerciseSummaryResponse{
		ID:               ex.ID,
		Name:             ex.Name,
		MuscleGroup:      ex.MuscleGroup.Display(),
		SecondaryMuscles: secondaries,
		Difficulty:       ex.Difficulty.Display(),
		Equipment:        ex.Equipment.Display(),
		ImageURL:         imageURL(ex),
	}
}

// MapExercisesToSummaries converts a slice of exercises to the list view.
// Always returns a non-nil slice so clients get [] instead of null.
func MapExercisesToSummaries(exercises []domain.Exercise) []ExerciseSummaryResponse {
	responses := make([]ExerciseSummaryResponse, len(exercises))
	for i, ex := range exercises {
		responses[i] = MapExerciseToSummary(&ex)
	}
	return responses
}

func imageURL(ex *domain.Exercise) *string {
	if ex.Image == nil {
		return nil
	}
	url := ex.Image.URL
	return &url
}

// --- Multipart payload extraction ---

// exercisePayload builds a validation.Payload (and optional image upload)
// from a multipart form. Field presence follows form-key presence so the
// pipeline can tell an absent field from a supplied empty one. The two
// structured fields arrive as JSON form values; unparseable JSON is
// reported per field, both fields checked before giving up.
func exercisePayload(c *gin.Context) (validation.Payload, *service.ImageUpload, validation.FieldErrors, error) {
	var payload validation.Payload

	form, err := c.MultipartForm()
	if err != nil {
		return payload, nil, nil, err
	}

	formValue := func(key string) *string {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}
		value := values[0]
		return &value
	}

	payload.Name = formValue("name")
	payload.MuscleGroup = formValue("muscleGroup")
	payload.Difficulty = formValue("difficulty")
	payload.Equipment = formValue("equipment")

	// Repeated or comma-joined values both work, same as the filter axes.
	if values, ok := form.Value["secondaryMuscles"]; ok {
		tokens := filter.Tokens(values)
		payload.SecondaryMuscles = &tokens
	}

	parseErrs := validation.FieldErrors{}
	// Update-only field; create ignores it (new records always start
	// active). isActive=true on an inactive record reactivates it.
	if raw := formValue("isActive"); raw != nil {
		active, err := strconv.ParseBool(*raw)
		if err != nil {
			parseErrs.Add("isActive", "isActive must be a boolean")
		} else {
			payload.IsActive = &active
		}
	}
	if raw := formValue("idealAngles"); raw != nil {
		var value any
		if err := json.Unmarshal([]byte(*raw), &value); err != nil {
			parseErrs.Add("idealAngles", "idealAngles must be valid JSON")
		} else {
			payload.IdealAngles = &value
		}
	}
	if raw := formValue("commonMistakes"); raw != nil {
		var value any
		if err := json.Unmarshal([]byte(*raw), &value); err != nil {
			parseErrs.Add("commonMistakes", "commonMistakes must be valid JSON")
		} else {
			payload.CommonMistakes = &value
		}
	}
	if len(parseErrs) > 0 {
		return payload, nil, parseErrs, nil
	}

	var image *service.ImageUpload
	if files, ok := form.File["image"]; ok && len(files) > 0 {
		header := files[0]
		file, err := header.Open()
		if err != nil {
			return payload, nil, nil, err
		}
		image = &service.ImageUpload{
			Filename:    header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	return payload, image, nil, nil
}

// --- Handler Methods ---

// ListExercises handles GET /all/ and returns all active exercises.
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.ListExercises(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, MapExercisesToSummaries(exercises))
}

// CreateExercise handles POST /all/ with a multipart payload. Validation
// failures come back as a 400 with the per-field error map.
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	payload, image, parseErrs, err := exercisePayload(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "multipart form data is required")
		return
	}
	if len(parseErrs) > 0 {
		c.JSON(http.StatusBadRequest, parseErrs)
		return
	}
	if image != nil {
		defer image.Body.Close()
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), payload, image)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapExerciseToResponse(exercise))
}

// GetExercise handles GET /:id/. Soft-deleted records are still served.
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exercise, err := h.exerciseService.GetExerciseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// UpdateExercise handles PUT and PATCH /:id/ with a partial multipart
// payload. Only supplied fields change; cross-field rules run against the
// merged record.
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	payload, image, parseErrs, err := exercisePayload(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "multipart form data is required")
		return
	}
	if len(parseErrs) > 0 {
		c.JSON(http.StatusBadRequest, parseErrs)
		return
	}
	if image != nil {
		defer image.Body.Close()
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), c.Param("id"), payload, image)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// DeleteExercise handles DELETE /:id/ as a soft delete. Deleting an
// already-inactive record succeeds again; only an unknown id is a 404.
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	if err := h.exerciseService.SoftDeleteExercise(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchByName handles GET /search/?name=...
func (h *ExerciseHandler) SearchByName(c *gin.Context) {
	exercises, err := h.exerciseService.SearchByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToSummaries(exercises))
}

// FilterByMuscleGroup handles GET /muscle-group/?muscle_group=a,b (or
// repeated parameters).
func (h *ExerciseHandler) FilterByMuscleGroup(c *gin.Context) {
	exercises, err := h.exerciseService.FilterByMuscleGroup(c.Request.Context(), c.QueryArray("muscle_group"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToSummaries(exercises))
}

// FilterByDifficulty handles GET /difficulty/?difficulty=...
func (h *ExerciseHandler) FilterByDifficulty(c *gin.Context) {
	exercises, err := h.exerciseService.FilterByDifficulty(c.Request.Context(), c.QueryArray("difficulty"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToSummaries(exercises))
}

// FilterByEquipment handles GET /equipment/?equipment=...
func (h *ExerciseHandler) FilterByEquipment(c *gin.Context) {
	exercises, err := h.exerciseService.FilterByEquipment(c.Request.Context(), c.QueryArray("equipment"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToSummaries(exercises))
}

// respondServiceError maps service-layer errors onto the HTTP surface:
// validation failures render the field map, filter errors name the invalid
// tokens and the valid options, unknown ids are 404, everything else is a
// generic 500 so store faults are never masked as success.
func respondServiceError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, validationErr.Fields)
		return
	}

	var filterErr *filter.Error
	if errors.As(err, &filterErr) {
		body := gin.H{"error": filterErr.Error()}
		if len(filterErr.Invalid) > 0 {
			body["invalid"] = filterErr.Invalid
		}
		if len(filterErr.Options) > 0 {
			body["validOptions"] = filterErr.Options
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return
	}

	if errors.Is(err, service.ErrExerciseNotFound) {
		abortWithError(c, http.StatusNotFound, "exercise not found")
		return
	}

	abortWithError(c, http.StatusInternalServerError, "internal server error")
}
