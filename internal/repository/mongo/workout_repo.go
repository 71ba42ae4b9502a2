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

const workoutCollectionName = "imported_workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new workout cache repository backed by MongoDB.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Upsert inserts or replaces the cached workout keyed by (userId, externalId).
func (r *mongoWorkoutRepository) Upsert(ctx context.Context, workout *domain.ImportedWorkout) error {
	if workout.UserID == primitive.NilObjectID || workout.ExternalID == "" {
		return errors.New("user ID and external ID are required for workout upsert")
	}

	filter := bson.M{"userId": workout.UserID, "externalId": workout.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"title":        workout.Title,
			"description":  workout.Description,
			"startTime":    workout.StartTime,
			"endTime":      workout.EndTime,
			"exercises":    workout.Exercises,
			"lastSyncedAt": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"userId":     workout.UserID,
			"externalId": workout.ExternalID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ExternalIDs returns the set of external ids already cached for the user.
func (r *mongoWorkoutRepository) ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error) {
	return distinctExternalIDs(ctx, r.collection, userID)
}

// GetSince retrieves workouts started on or after the cutoff, newest first.
func (r *mongoWorkoutRepository) GetSince(ctx context.Context, userID primitive.ObjectID, cutoff time.Time) ([]domain.ImportedWorkout, error) {
	var workouts []domain.ImportedWorkout
	filter := bson.M{
		"userId":    userID,
		"startTime": bson.M{"$gte": cutoff},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, cursor.Err()
}

// LatestStartTime returns the start time of the newest cached workout, or the
// zero time when the cache is empty.
func (r *mongoWorkoutRepository) LatestStartTime(ctx context.Context, userID primitive.ObjectID) (time.Time, error) {
	var workout domain.ImportedWorkout
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}})

	err := r.collection.FindOne(ctx, bson.M{"userId": userID}, findOptions).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return workout.StartTime, nil
}

// DeleteByExternalID removes a cached workout deleted upstream. Missing
// documents are ignored.
func (r *mongoWorkoutRepository) DeleteByExternalID(ctx context.Context, userID primitive.ObjectID, externalID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "externalId": externalID})
	return err
}

// EnsureWorkoutIndexes creates necessary indexes for the workout cache.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// History queries walk the recent window newest-first.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startTime", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
