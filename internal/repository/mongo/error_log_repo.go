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

const errorLogCollectionName = "error_logs"

// mongoErrorLogRepository implements repository.ErrorLogRepository
type mongoErrorLogRepository struct {
	collection *mongo.Collection
}

// NewMongoErrorLogRepository creates a new error log repository backed by MongoDB.
func NewMongoErrorLogRepository(db *mongo.Database) repository.ErrorLogRepository {
	return &mongoErrorLogRepository{
		collection: db.Collection(errorLogCollectionName),
	}
}

// Create appends a diagnostic record.
func (r *mongoErrorLogRepository) Create(ctx context.Context, entry *domain.ErrorLog) (primitive.ObjectID, error) {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListUnresolved returns unresolved diagnostic records, newest first.
func (r *mongoErrorLogRepository) ListUnresolved(ctx context.Context, limit int64) ([]domain.ErrorLog, error) {
	var entries []domain.ErrorLog
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions = findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"resolved": false}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, cursor.Err()
}

// MarkResolved flags a record as handled and returns the updated document.
func (r *mongoErrorLogRepository) MarkResolved(ctx context.Context, id primitive.ObjectID) (*domain.ErrorLog, error) {
	var entry domain.ErrorLog
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"resolved": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// EnsureErrorLogIndexes creates necessary indexes for the error log collection.
func EnsureErrorLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "resolved", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
