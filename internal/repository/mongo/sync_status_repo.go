package mongo

import (
	"context"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const syncStatusCollectionName = "sync_statuses"

// mongoSyncStatusRepository implements repository.SyncStatusRepository
type mongoSyncStatusRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncStatusRepository creates a new sync status repository backed by MongoDB.
func NewMongoSyncStatusRepository(db *mongo.Database) repository.SyncStatusRepository {
	return &mongoSyncStatusRepository{
		collection: db.Collection(syncStatusCollectionName),
	}
}

// Claim atomically inserts a new in_progress run record. The partial unique
// index on userId (non-terminal states only) makes the insert itself the
// mutual-exclusion check: a second claim while a run is active fails with a
// duplicate key error, surfaced as ErrSyncInProgress.
func (r *mongoSyncStatusRepository) Claim(ctx context.Context, userID primitive.ObjectID, syncType domain.SyncType) (*domain.SyncStatus, error) {
	status := &domain.SyncStatus{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      syncType,
		State:     domain.SyncStateInProgress,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.collection.InsertOne(ctx, status)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrSyncInProgress
		}
		return nil, err
	}
	return status, nil
}

// UpdateProgress persists the coarse progress counters onto the run record.
func (r *mongoSyncStatusRepository) UpdateProgress(ctx context.Context, id primitive.ObjectID, itemsSynced, totalItems int) error {
	update := bson.M{"$set": bson.M{"itemsSynced": itemsSynced}}
	if totalItems > 0 {
		update = bson.M{"$set": bson.M{"itemsSynced": itemsSynced, "totalItems": totalItems}}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Finalize transitions the run record into a terminal state with its final
// counts and error metadata. Finalizing an already-terminal row is a no-op
// mismatch and reports ErrUpdateFailed.
func (r *mongoSyncStatusRepository) Finalize(ctx context.Context, id primitive.ObjectID, state domain.SyncState, itemsSynced, itemsFailed int, errMsg string, itemErrors []domain.SyncItemError) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":   id,
		"state": bson.M{"$in": []domain.SyncState{domain.SyncStatePending, domain.SyncStateInProgress}},
	}
	update := bson.M{
		"$set": bson.M{
			"state":        state,
			"itemsSynced":  itemsSynced,
			"itemsFailed":  itemsFailed,
			"errorMessage": errMsg,
			"itemErrors":   itemErrors,
			"completedAt":  now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

// GetByID retrieves a run record by its ID.
func (r *mongoSyncStatusRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SyncStatus, error) {
	var status domain.SyncStatus
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&status)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &status, nil
}

// HasActive reports whether a non-terminal run exists for the user.
func (r *mongoSyncStatusRepository) HasActive(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"userId": userID,
		"state":  bson.M{"$in": []domain.SyncState{domain.SyncStatePending, domain.SyncStateInProgress}},
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the most recent run records for a user, newest first.
func (r *mongoSyncStatusRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SyncStatus, error) {
	var statuses []domain.SyncStatus
	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		findOptions = findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &statuses); err != nil {
		return nil, err
	}
	return statuses, cursor.Err()
}

// FailStale force-finalizes non-terminal runs older than the cutoff. This is
// the manual recovery sweep for runs interrupted by a crash, which otherwise
// block new claims forever.
func (r *mongoSyncStatusRepository) FailStale(ctx context.Context, userID primitive.ObjectID, olderThan time.Time) (int64, error) {
	filter := bson.M{
		"userId":    userID,
		"state":     bson.M{"$in": []domain.SyncState{domain.SyncStatePending, domain.SyncStateInProgress}},
		"startedAt": bson.M{"$lt": olderThan},
	}
	update := bson.M{
		"$set": bson.M{
			"state":        domain.SyncStateFailed,
			"errorMessage": "sync interrupted and cleaned up",
			"completedAt":  time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureSyncStatusIndexes creates necessary indexes for the sync status
// collection, including the partial unique index that backs Claim.
func EnsureSyncStatusIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one non-terminal run per user: this is the atomic
			// claim that replaces a check-then-act "is sync running" read.
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_active_sync_per_user").
				SetPartialFilterExpression(bson.M{
					"state": bson.M{"$in": []string{string(domain.SyncStatePending), string(domain.SyncStateInProgress)}},
				}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
