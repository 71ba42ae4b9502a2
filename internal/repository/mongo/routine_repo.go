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

const (
	routineCollectionName       = "imported_routines"
	routineFolderCollectionName = "imported_routine_folders"
)

// mongoRoutineRepository implements repository.RoutineRepository
type mongoRoutineRepository struct {
	collection *mongo.Collection
}

// NewMongoRoutineRepository creates a new routine cache repository backed by MongoDB.
func NewMongoRoutineRepository(db *mongo.Database) repository.RoutineRepository {
	return &mongoRoutineRepository{
		collection: db.Collection(routineCollectionName),
	}
}

// Upsert inserts or replaces the cached routine keyed by (userId, externalId).
// FolderExternalID is stored as-is even when the folder is not cached yet;
// the reference is soft.
func (r *mongoRoutineRepository) Upsert(ctx context.Context, routine *domain.ImportedRoutine) error {
	if routine.UserID == primitive.NilObjectID || routine.ExternalID == "" {
		return errors.New("user ID and external ID are required for routine upsert")
	}

	filter := bson.M{"userId": routine.UserID, "externalId": routine.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"title":            routine.Title,
			"notes":            routine.Notes,
			"folderExternalId": routine.FolderExternalID,
			"exercises":        routine.Exercises,
			"lastSyncedAt":     time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"userId":     routine.UserID,
			"externalId": routine.ExternalID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ExternalIDs returns the set of external ids already cached for the user.
func (r *mongoRoutineRepository) ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error) {
	return distinctExternalIDs(ctx, r.collection, userID)
}

// GetByUserID retrieves all cached routines for a user, newest sync first.
func (r *mongoRoutineRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedRoutine, error) {
	var routines []domain.ImportedRoutine
	findOptions := options.Find().SetSort(bson.D{{Key: "lastSyncedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &routines); err != nil {
		return nil, err
	}
	return routines, cursor.Err()
}

// EnsureRoutineIndexes creates necessary indexes for the routine cache.
func EnsureRoutineIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

// mongoRoutineFolderRepository implements repository.RoutineFolderRepository
type mongoRoutineFolderRepository struct {
	collection *mongo.Collection
}

// NewMongoRoutineFolderRepository creates a new routine folder cache
// repository backed by MongoDB.
func NewMongoRoutineFolderRepository(db *mongo.Database) repository.RoutineFolderRepository {
	return &mongoRoutineFolderRepository{
		collection: db.Collection(routineFolderCollectionName),
	}
}

// Upsert inserts or replaces the cached folder keyed by (userId, externalId).
func (r *mongoRoutineFolderRepository) Upsert(ctx context.Context, folder *domain.ImportedRoutineFolder) error {
	if folder.UserID == primitive.NilObjectID || folder.ExternalID == "" {
		return errors.New("user ID and external ID are required for folder upsert")
	}

	filter := bson.M{"userId": folder.UserID, "externalId": folder.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"title":        folder.Title,
			"lastSyncedAt": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"userId":     folder.UserID,
			"externalId": folder.ExternalID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ExternalIDs returns the set of external ids already cached for the user.
func (r *mongoRoutineFolderRepository) ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error) {
	return distinctExternalIDs(ctx, r.collection, userID)
}

// GetByUserID retrieves all cached folders for a user.
func (r *mongoRoutineFolderRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedRoutineFolder, error) {
	var folders []domain.ImportedRoutineFolder
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, cursor.Err()
}

// EnsureRoutineFolderIndexes creates necessary indexes for the folder cache.
func EnsureRoutineFolderIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
