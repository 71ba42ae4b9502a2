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

const profileCollectionName = "user_profiles"

// mongoProfileRepository implements repository.ProfileRepository
type mongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates a new UserProfile repository backed by MongoDB.
func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection(profileCollectionName),
	}
}

// Upsert inserts the profile on first submission or replaces its mutable
// fields afterwards. The unique index on userId guarantees at most one
// profile per user even under concurrent submissions.
func (r *mongoProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if profile.UserID == primitive.NilObjectID {
		return nil, errors.New("user ID is required for profile upsert")
	}

	now := time.Now().UTC()
	filter := bson.M{"userId": profile.UserID}
	update := bson.M{
		"$set": bson.M{
			"age":             profile.Age,
			"bodyWeightKg":    profile.BodyWeightKg,
			"weeklyFrequency": profile.WeeklyFrequency,
			"experienceLevel": profile.ExperienceLevel,
			"focusAreas":      profile.FocusAreas,
			"injuries":        profile.Injuries,
			"injuryDetails":   profile.InjuryDetails,
			"otherActivities": profile.OtherActivities,
			"updatedAt":       now,
		},
		"$setOnInsert": bson.M{
			"userId":    profile.UserID,
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated domain.UserProfile
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetByUserID retrieves the profile for a user.
func (r *mongoProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// EnsureProfileIndexes creates necessary indexes for the user_profiles collection.
func EnsureProfileIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One profile per user.
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
