package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportedExerciseTemplate caches one exercise template pulled from the Hevy
// API. The pair (userId, externalId) is unique; rows are created and updated
// only by the exercise sync service, never by generation.
type ImportedExerciseTemplate struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	ExternalID       string             `bson:"externalId" json:"externalId"`
	Title            string             `bson:"title" json:"title"`
	PrimaryMuscle    string             `bson:"primaryMuscle" json:"primaryMuscle"`
	SecondaryMuscles []string           `bson:"secondaryMuscles,omitempty" json:"secondaryMuscles,omitempty"`
	Equipment        string             `bson:"equipment" json:"equipment"`
	IsCustom         bool               `bson:"isCustom" json:"isCustom"`
	LastSyncedAt     time.Time          `bson:"lastSyncedAt" json:"lastSyncedAt"`
}

// IsComplete reports whether the template carries enough data to take part in
// training analysis and prompt building. Incomplete templates are silently
// excluded downstream.
func (t *ImportedExerciseTemplate) IsComplete() bool {
	return t.Title != "" && t.PrimaryMuscle != "" && t.Equipment != ""
}
