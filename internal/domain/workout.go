package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportedWorkout caches one completed workout pulled from the Hevy API,
// keyed by (userId, externalId). Created and updated only by the workout sync
// service.
type ImportedWorkout struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	ExternalID   string             `bson:"externalId" json:"externalId"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	StartTime    time.Time          `bson:"startTime" json:"startTime"`
	EndTime      time.Time          `bson:"endTime" json:"endTime"`
	Exercises    []RoutineExercise  `bson:"exercises,omitempty" json:"exercises,omitempty"`
	LastSyncedAt time.Time          `bson:"lastSyncedAt" json:"lastSyncedAt"`
}
