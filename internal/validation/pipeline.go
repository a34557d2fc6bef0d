// Package validation decides whether an incoming create/update payload is
// admissible. Field rules run independently and their failures accumulate
// into one FieldErrors map; the cross-field muscle exclusivity rule runs
// afterwards, only when the fields it reads validated cleanly. A client
// therefore sees every violated field in a single round trip.
package validation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"alcyxob/exercise-catalog/internal/domain"
)

// MaxImageBytes is the upload ceiling for exercise images.
const MaxImageBytes = 5 * 1024 * 1024

// MaxNameLength bounds the exercise name after trimming.
const MaxNameLength = 100

var allowedImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// FieldErrors maps a field name to the messages collected for it.
type FieldErrors map[string][]string

// Add appends a message for the given field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Has reports whether the field collected at least one error.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// NameChecker answers the uniqueness question against the record store.
// excludeID is the record being updated, empty on create.
type NameChecker interface {
	ActiveNameExists(ctx context.Context, name string, excludeID string) (bool, error)
}

// ImageMeta describes an uploaded image without carrying its bytes.
type ImageMeta struct {
	Filename string
	Size     int64
}

// Payload is a create/update request as received from the transport layer.
// Pointer (or explicitly nilable) fields distinguish "absent" from
// "supplied with a zero value"; update validation only inspects supplied
// fields while create validation demands the required ones.
type Payload struct {
	Name             *string
	MuscleGroup      *string
	SecondaryMuscles *[]string
	Difficulty       *string
	Equipment        *string
	Image            *ImageMeta
	IdealAngles      *any
	CommonMistakes   *any
	// IsActive is honored on update only; new records always start active.
	// Flipping it to true reactivates a soft-deleted record.
	IsActive *bool
}

// Normalized is the validated, typed shape of a payload. Fields are nil
// when the payload did not supply them; on create every required field is
// set.
type Normalized struct {
	Name             *string
	MuscleGroup      *domain.MuscleGroup
	SecondaryMuscles *[]domain.MuscleGroup
	Difficulty       *domain.Difficulty
	Equipment        *domain.Equipment
	IdealAngles      *any
	CommonMistakes   *any
	IsActive         *bool
}

// Pipeline runs per-field and cross-field validation for exercise payloads.
type Pipeline struct {
	names NameChecker
}

// NewPipeline creates a Pipeline backed by the given uniqueness checker.
func NewPipeline(names NameChecker) *Pipeline {
	return &Pipeline{names: names}
}

// ValidateCreate checks a full create payload. All required fields must be
// present. It returns the normalized payload when the FieldErrors map is
// empty; a non-nil error means the uniqueness lookup itself failed.
func (p *Pipeline) ValidateCreate(ctx context.Context, in Payload) (*Normalized, FieldErrors, error) {
	fe := FieldErrors{}
	out := &Normalized{}

	if in.Name == nil {
		fe.Add("name", "name is required")
	} else if err := p.checkName(ctx, *in.Name, "", fe, out); err != nil {
		return nil, nil, err
	}

	if in.MuscleGroup == nil {
		fe.Add("muscleGroup", "muscleGroup is required")
	} else {
		checkMuscleGroup(*in.MuscleGroup, fe, out)
	}

	if in.SecondaryMuscles != nil {
		checkSecondaryMuscles(*in.SecondaryMuscles, fe, out)
	}

	if in.Difficulty == nil {
		fe.Add("difficulty", "difficulty is required")
	} else {
		checkDifficulty(*in.Difficulty, fe, out)
	}

	if in.Equipment == nil {
		fe.Add("equipment", "equipment is required")
	} else {
		checkEquipment(*in.Equipment, fe, out)
	}

	if in.Image != nil {
		checkImage(*in.Image, fe)
	}

	if in.IdealAngles == nil {
		fe.Add("idealAngles", "idealAngles is required")
	} else if emptyAngles(*in.IdealAngles) {
		fe.Add("idealAngles", "idealAngles cannot be empty")
	} else {
		out.IdealAngles = in.IdealAngles
	}

	if in.CommonMistakes == nil {
		fe.Add("commonMistakes", "commonMistakes is required")
	} else if *in.CommonMistakes == nil || emptyMistakes(*in.CommonMistakes) {
		fe.Add("commonMistakes", "commonMistakes cannot be empty")
	} else {
		out.CommonMistakes = in.CommonMistakes
	}

	// Cross-field rule, gated on its inputs being individually clean.
	if !fe.Has("muscleGroup") && !fe.Has("secondaryMuscles") && out.MuscleGroup != nil && out.SecondaryMuscles != nil {
		checkExclusivity(*out.MuscleGroup, *out.SecondaryMuscles, fe)
	}

	if len(fe) > 0 {
		return nil, fe, nil
	}
	return out, fe, nil
}

// ValidateUpdate checks a partial payload against an existing record. Only
// supplied fields are validated individually; the cross-field rule reads
// the merged view (payload value if supplied, stored value otherwise).
func (p *Pipeline) ValidateUpdate(ctx context.Context, in Payload, existing *domain.Exercise) (*Normalized, FieldErrors, error) {
	fe := FieldErrors{}
	out := &Normalized{}

	if in.Name != nil {
		if err := p.checkName(ctx, *in.Name, existing.ID, fe, out); err != nil {
			return nil, nil, err
		}
	}
	if in.MuscleGroup != nil {
		checkMuscleGroup(*in.MuscleGroup, fe, out)
	}
	if in.SecondaryMuscles != nil {
		checkSecondaryMuscles(*in.SecondaryMuscles, fe, out)
	}
	if in.Difficulty != nil {
		checkDifficulty(*in.Difficulty, fe, out)
	}
	if in.Equipment != nil {
		checkEquipment(*in.Equipment, fe, out)
	}
	if in.Image != nil {
		checkImage(*in.Image, fe)
	}
	if in.IdealAngles != nil {
		if emptyAngles(*in.IdealAngles) {
			fe.Add("idealAngles", "idealAngles cannot be empty")
		} else {
			out.IdealAngles = in.IdealAngles
		}
	}
	if in.CommonMistakes != nil {
		if emptyMistakes(*in.CommonMistakes) {
			fe.Add("commonMistakes", "commonMistakes cannot be empty")
		} else {
			out.CommonMistakes = in.CommonMistakes
		}
	}
	if in.IsActive != nil {
		// Reactivating a soft-deleted record puts its name back in the
		// active set, so the uniqueness rule applies again. A supplied
		// name was already checked above.
		if *in.IsActive && !existing.IsActive && in.Name == nil {
			taken, err := p.names.ActiveNameExists(ctx, existing.Name, existing.ID)
			if err != nil {
				return nil, nil, err
			}
			if taken {
				fe.Add("isActive", "cannot reactivate: an active exercise with this name already exists")
			}
		}
		out.IsActive = in.IsActive
	}

	// Resolve the cross-field inputs against the stored record.
	group := existing.MuscleGroup
	if out.MuscleGroup != nil {
		group = *out.MuscleGroup
	}
	secondaries := existing.SecondaryMuscles
	if out.SecondaryMuscles != nil {
		secondaries = *out.SecondaryMuscles
	}
	if !fe.Has("muscleGroup") && !fe.Has("secondaryMuscles") {
		checkExclusivity(group, secondaries, fe)
	}

	if len(fe) > 0 {
		return nil, fe, nil
	}
	return out, fe, nil
}

func (p *Pipeline) checkName(ctx context.Context, raw, excludeID string, fe FieldErrors, out *Normalized) error {
	name := strings.TrimSpace(raw)
	if name == "" {
		fe.Add("name", "name cannot be blank")
		return nil
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		fe.Add("name", fmt.Sprintf("name cannot exceed %d characters", MaxNameLength))
		return nil
	}
	taken, err := p.names.ActiveNameExists(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		fe.Add("name", "an active exercise with this name already exists")
		return nil
	}
	out.Name = &name
	return nil
}

func checkMuscleGroup(raw string, fe FieldErrors, out *Normalized) {
	group := domain.MuscleGroup(raw)
	if !group.Valid() {
		fe.Add("muscleGroup", fmt.Sprintf("'%s' is not a valid muscle group. Valid options: %s",
			raw, strings.Join(domain.MuscleGroupTokens(), ", ")))
		return
	}
	out.MuscleGroup = &group
}

func checkSecondaryMuscles(raw []string, fe FieldErrors, out *Normalized) {
	muscles := make([]domain.MuscleGroup, 0, len(raw))
	var invalid []string
	for _, token := range raw {
		group := domain.MuscleGroup(token)
		if !group.Valid() {
			invalid = append(invalid, token)
			continue
		}
		muscles = append(muscles, group)
	}
	if len(invalid) > 0 {
		fe.Add("secondaryMuscles", fmt.Sprintf("invalid muscles: %s. Valid options: %s",
			strings.Join(invalid, ", "), strings.Join(domain.MuscleGroupTokens(), ", ")))
		return
	}
	out.SecondaryMuscles = &muscles
}

func checkDifficulty(raw string, fe FieldErrors, out *Normalized) {
	difficulty := domain.Difficulty(raw)
	if !difficulty.Valid() {
		fe.Add("difficulty", fmt.Sprintf("'%s' is not a valid difficulty level. Valid options: %s",
			raw, strings.Join(domain.DifficultyTokens(), ", ")))
		return
	}
	out.Difficulty = &difficulty
}

func checkEquipment(raw string, fe FieldErrors, out *Normalized) {
	equipment := domain.Equipment(raw)
	if !equipment.Valid() {
		fe.Add("equipment", fmt.Sprintf("'%s' is not a valid equipment option. Valid options: %s",
			raw, strings.Join(domain.EquipmentTokens(), ", ")))
		return
	}
	out.Equipment = &equipment
}

func checkImage(meta ImageMeta, fe FieldErrors) {
	if meta.Size > MaxImageBytes {
		fe.Add("image", "image cannot exceed 5MB")
	}
	if !ValidImageExtension(meta.Filename) {
		fe.Add("image", fmt.Sprintf("invalid image format. Allowed formats: %s",
			strings.Join(allowedImageExtensions, ", ")))
	}
}

func checkExclusivity(group domain.MuscleGroup, secondaries []domain.MuscleGroup, fe FieldErrors) {
	for _, m := range secondaries {
		if m == group {
			fe.Add("secondaryMuscles", fmt.Sprintf("primary muscle '%s' cannot appear in secondaryMuscles", group))
			return
		}
	}
}

// ValidImageExtension checks the trailing extension (after the last dot,
// case-insensitive) against the allowed set.
func ValidImageExtension(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	for _, allowed := range allowedImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// emptyAngles reports whether a decoded idealAngles value counts as empty:
// JSON null, an empty object or an empty array.
func emptyAngles(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// emptyMistakes reports whether a decoded commonMistakes value counts as
// empty: an empty array or an empty string. A null is handled separately on
// create, where the field is required.
func emptyMistakes(v any) bool {
	switch t := v.(type) {
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	}
	return false
}
