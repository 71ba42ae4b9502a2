package mongo

import (
	"context"
	"errors"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseTemplateCollectionName = "imported_exercise_templates"

// mongoExerciseTemplateRepository implements repository.ExerciseTemplateRepository
type mongoExerciseTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseTemplateRepository creates a new exercise template cache
// repository backed by MongoDB.
func NewMongoExerciseTemplateRepository(db *mongo.Database) repository.ExerciseTemplateRepository {
	return &mongoExerciseTemplateRepository{
		collection: db.Collection(exerciseTemplateCollectionName),
	}
}

// Upsert inserts or replaces the cached template keyed by (userId, externalId).
func (r *mongoExerciseTemplateRepository) Upsert(ctx context.Context, tpl *domain.ImportedExerciseTemplate) error {
	if tpl.UserID == primitive.NilObjectID || tpl.ExternalID == "" {
		return errors.New("user ID and external ID are required for template upsert")
	}

	filter := bson.M{"userId": tpl.UserID, "externalId": tpl.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"title":            tpl.Title,
			"primaryMuscle":    tpl.PrimaryMuscle,
			"secondaryMuscles": tpl.SecondaryMuscles,
			"equipment":        tpl.Equipment,
			"isCustom":         tpl.IsCustom,
			"lastSyncedAt":     time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"userId":     tpl.UserID,
			"externalId": tpl.ExternalID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ExternalIDs returns the set of external ids already cached for the user.
func (r *mongoExerciseTemplateRepository) ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error) {
	return distinctExternalIDs(ctx, r.collection, userID)
}

// GetByUserID retrieves all cached templates for a user.
func (r *mongoExerciseTemplateRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedExerciseTemplate, error) {
	var templates []domain.ImportedExerciseTemplate
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, cursor.Err()
}

// CountByUserID reports how many templates are cached for a user.
func (r *mongoExerciseTemplateRepository) CountByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID})
}

// distinctExternalIDs is shared by all imported-resource repositories: every
// cache keys rows the same way.
func distinctExternalIDs(ctx context.Context, collection *mongo.Collection, userID primitive.ObjectID) (map[string]struct{}, error) {
	values, err := collection.Distinct(ctx, "externalId", bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids[s] = struct{}{}
		}
	}
	return ids, nil
}

// EnsureExerciseTemplateIndexes creates necessary indexes for the template cache.
func EnsureExerciseTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Upsert key: one row per (user, external id).
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
