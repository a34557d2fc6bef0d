package mongo

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"alcyxob/exercise-catalog/internal/domain"
	"alcyxob/exercise-catalog/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Insert stores a new exercise. The unique partial index on nameLower
// closes the check-then-insert race: a concurrent create of the same active
// name surfaces here as ErrDuplicate instead of a second active duplicate.
func (r *mongoExerciseRepository) Insert(ctx context.Context, exercise *domain.Exercise) (string, error) {
	if exercise.Name == "" {
		return "", errors.New("exercise name is required")
	}

	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	exercise.NameLower = strings.ToLower(exercise.Name)
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	exercise.IsActive = true

	_, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}

	return exercise.ID, nil
}

// GetByID retrieves an exercise by its ID, regardless of active state.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	var exercise domain.Exercise
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// UpdateFields applies a partial update to exactly the supplied fields and
// refreshes updatedAt. Changing name also refreshes its lowercase shadow.
func (r *mongoExerciseRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) (*domain.Exercise, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for key, value := range fields {
		set[key] = value
		if key == "name" {
			if name, ok := value.(string); ok {
				set["nameLower"] = strings.ToLower(name)
			}
		}
	}

	filter := bson.M{"_id": id}
	update := bson.M{"$set": set}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var exercise domain.Exercise
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &exercise, nil
}

// SetActive flips the soft-delete flag. Flipping to the current value is
// not an error.
func (r *mongoExerciseRepository) SetActive(ctx context.Context, id string, active bool) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{
		"isActive":  active,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindActive returns all active exercises, newest first.
func (r *mongoExerciseRepository) FindActive(ctx context.Context) ([]domain.Exercise, error) {
	return r.findActive(ctx, bson.M{})
}

// FindActiveByNameSubstring returns active exercises whose name contains
// the substring, case-insensitively.
func (r *mongoExerciseRepository) FindActiveByNameSubstring(ctx context.Context, substring string) ([]domain.Exercise, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(substring), Options: "i"}
	return r.findActive(ctx, bson.M{"name": pattern})
}

// FindActiveIn returns active exercises whose field value is a member of
// the token set.
func (r *mongoExerciseRepository) FindActiveIn(ctx context.Context, field string, tokens []string) ([]domain.Exercise, error) {
	return r.findActive(ctx, bson.M{field: bson.M{"$in": tokens}})
}

func (r *mongoExerciseRepository) findActive(ctx context.Context, filter bson.M) ([]domain.Exercise, error) {
	filter["isActive"] = true

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}) // Sort by newest first

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return exercises, nil
}

// ActiveNameExists reports whether an active exercise other than excludeID
// already holds the name, case-insensitively.
func (r *mongoExerciseRepository) ActiveNameExists(ctx context.Context, name string, excludeID string) (bool, error) {
	filter := bson.M{
		"nameLower": strings.ToLower(strings.TrimSpace(name)),
		"isActive":  true,
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Active-name uniqueness lives in the store so a concurrent
			// create cannot slip past the service-level check.
			Keys: bson.D{{Key: "nameLower", Value: 1}},
			Options: options.Index().
				SetName("unique_active_name").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys:    bson.D{{Key: "muscleGroup", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "difficulty", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "equipment", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
