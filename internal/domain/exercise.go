// internal/domain/exercise.go
package domain

import (
	"time"
)

// MuscleGroup identifies one of the fixed muscle groups an exercise can target.
type MuscleGroup string

const (
	MusclePierna         MuscleGroup = "pierna"
	MuscleGluteo         MuscleGroup = "gluteo"
	MusclePecho          MuscleGroup = "pecho"
	MuscleEspalda        MuscleGroup = "espalda"
	MuscleHombros        MuscleGroup = "hombros"
	MuscleBrazos         MuscleGroup = "brazos"
	MuscleAbdomen        MuscleGroup = "abdomen"
	MuscleCuerpoCompleto MuscleGroup = "cuerpo_completo"
)

// Difficulty is the skill level required for an exercise.
type Difficulty string

const (
	DifficultyPrincipiante Difficulty = "principiante"
	DifficultyIntermedio   Difficulty = "intermedio"
	DifficultyAvanzado     Difficulty = "avanzado"
)

// Equipment is the gear an exercise needs.
type Equipment string

const (
	EquipmentMancuernas Equipment = "mancuernas"
	EquipmentCuerpo     Equipment = "cuerpo"
	EquipmentBandas     Equipment = "bandas"
	EquipmentGimnasio   Equipment = "gimnasio"
)

// MuscleGroups lists every valid muscle group, in declaration order.
// Initialized once at startup and shared read-only across handlers.
var MuscleGroups = []MuscleGroup{
	MusclePierna,
	MuscleGluteo,
	MusclePecho,
	MuscleEspalda,
	MuscleHombros,
	MuscleBrazos,
	MuscleAbdomen,
	MuscleCuerpoCompleto,
}

// Difficulties lists every valid difficulty level.
var Difficulties = []Difficulty{
	DifficultyPrincipiante,
	DifficultyIntermedio,
	DifficultyAvanzado,
}

// Equipments lists every valid equipment option.
var Equipments = []Equipment{
	EquipmentMancuernas,
	EquipmentCuerpo,
	EquipmentBandas,
	EquipmentGimnasio,
}

// Human-readable labels, keyed by the stored token.
var muscleGroupLabels = map[MuscleGroup]string{
	MusclePierna:         "Pierna",
	MuscleGluteo:         "Glúteo",
	MusclePecho:          "Pecho",
	MuscleEspalda:        "Espalda",
	MuscleHombros:        "Hombros",
	MuscleBrazos:         "Brazos",
	MuscleAbdomen:        "Abdomen",
	MuscleCuerpoCompleto: "Cuerpo Completo",
}

var difficultyLabels = map[Difficulty]string{
	DifficultyPrincipiante: "Principiante",
	DifficultyIntermedio:   "Intermedio",
	DifficultyAvanzado:     "Avanzado",
}

var equipmentLabels = map[Equipment]string{
	EquipmentMancuernas: "Mancuernas",
	EquipmentCuerpo:     "Sólo mi cuerpo",
	EquipmentBandas:     "Bandas de resistencia",
	EquipmentGimnasio:   "Máquinas de gimnasio",
}

// Valid reports whether m is a member of the closed muscle-group set.
func (m MuscleGroup) Valid() bool {
	_, ok := muscleGroupLabels[m]
	return ok
}

// Display returns the human-readable label, falling back to the raw token.
func (m MuscleGroup) Display() string {
	if label, ok := muscleGroupLabels[m]; ok {
		return label
	}
	return string(m)
}

// Valid reports whether d is a member of the closed difficulty set.
func (d Difficulty) Valid() bool {
	_, ok := difficultyLabels[d]
	return ok
}

// Display returns the human-readable label, falling back to the raw token.
func (d Difficulty) Display() string {
	if label, ok := difficultyLabels[d]; ok {
		return label
	}
	return string(d)
}

// Valid reports whether e is a member of the closed equipment set.
func (e Equipment) Valid() bool {
	_, ok := equipmentLabels[e]
	return ok
}

// Display returns the human-readable label, falling back to the raw token.
func (e Equipment) Display() string {
	if label, ok := equipmentLabels[e]; ok {
		return label
	}
	return string(e)
}

// MuscleGroupTokens returns the valid muscle-group tokens as plain strings.
func MuscleGroupTokens() []string {
	tokens := make([]string, len(MuscleGroups))
	for i, m := range MuscleGroups {
		tokens[i] = string(m)
	}
	return tokens
}

// DifficultyTokens returns the valid difficulty tokens as plain strings.
func DifficultyTokens() []string {
	tokens := make([]string, len(Difficulties))
	for i, d := range Difficulties {
		tokens[i] = string(d)
	}
	return tokens
}

// EquipmentTokens returns the valid equipment tokens as plain strings.
func EquipmentTokens() []string {
	tokens := make([]string, len(Equipments))
	for i, e := range Equipments {
		tokens[i] = string(e)
	}
	return tokens
}

// ImageRef points at an uploaded exercise image in object storage.
type ImageRef struct {
	Key string `bson:"key" json:"key"`
	URL string `bson:"url" json:"url"`
}

// Exercise represents a single exercise definition in the catalog.
// Records are never physically removed: deletion flips IsActive to false
// and every list/search/filter path only sees active records.
type Exercise struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
	// NameLower backs the case-insensitive active-name uniqueness check.
	NameLower string `bson:"nameLower" json:"-"`

	MuscleGroup      MuscleGroup   `bson:"muscleGroup" json:"muscleGroup"`
	SecondaryMuscles []MuscleGroup `bson:"secondaryMuscles,omitempty" json:"secondaryMuscles,omitempty"`
	Difficulty       Difficulty    `bson:"difficulty" json:"difficulty"`
	Equipment        Equipment     `bson:"equipment" json:"equipment"`

	Image *ImageRef `bson:"image,omitempty" json:"image,omitempty"`

	// IdealAngles and CommonMistakes hold arbitrary structured JSON
	// (per-joint angle targets, mistake descriptions). Never empty on an
	// active record.
	IdealAngles    any `bson:"idealAngles" json:"idealAngles"`
	CommonMistakes any `bson:"commonMistakes" json:"commonMistakes"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
