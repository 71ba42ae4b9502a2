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

const generatedRoutineCollectionName = "generated_routines"

// mongoGeneratedRoutineRepository implements repository.GeneratedRoutineRepository
type mongoGeneratedRoutineRepository struct {
	collection *mongo.Collection
}

// NewMongoGeneratedRoutineRepository creates a new generated routine
// repository backed by MongoDB.
func NewMongoGeneratedRoutineRepository(db *mongo.Database) repository.GeneratedRoutineRepository {
	return &mongoGeneratedRoutineRepository{
		collection: db.Collection(generatedRoutineCollectionName),
	}
}

// Create inserts a new generation result.
func (r *mongoGeneratedRoutineRepository) Create(ctx context.Context, gr *domain.GeneratedRoutine) (primitive.ObjectID, error) {
	if gr.UserID == primitive.NilObjectID || len(gr.Programs) == 0 {
		return primitive.NilObjectID, errors.New("generated routine requires a user ID and at least one program")
	}

	gr.ID = primitive.NewObjectID()
	gr.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, gr)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves one generation result.
func (r *mongoGeneratedRoutineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.GeneratedRoutine, error) {
	var gr domain.GeneratedRoutine
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&gr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &gr, nil
}

// ListByUser returns generation results for a user, newest first.
func (r *mongoGeneratedRoutineRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.GeneratedRoutine, error) {
	var results []domain.GeneratedRoutine
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions = findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, cursor.Err()
}

// MarkExported appends an export record for the given program index. The
// filter excludes documents that already carry a record for that index, so
// the false-to-exported transition happens at most once per index.
func (r *mongoGeneratedRoutineRepository) MarkExported(ctx context.Context, id primitive.ObjectID, index int, hevyRoutineID string) error {
	filter := bson.M{
		"_id":                  id,
		"exports.routineIndex": bson.M{"$ne": index},
	}
	update := bson.M{
		"$push": bson.M{
			"exports": domain.ExportRecord{
				RoutineIndex:  index,
				HevyRoutineID: hevyRoutineID,
				ExportedAt:    time.Now().UTC(),
			},
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the document does not exist or that index was already
		// exported; disambiguate for the caller.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrAlreadyExported
	}
	return nil
}

// EnsureGeneratedRoutineIndexes creates necessary indexes for the generated
// routines collection.
func EnsureGeneratedRoutineIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
