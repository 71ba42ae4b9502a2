package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportedRoutineFolder caches one routine folder from the Hevy API,
// keyed by (userId, externalId).
type ImportedRoutineFolder struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	ExternalID   string             `bson:"externalId" json:"externalId"`
	Title        string             `bson:"title" json:"title"`
	LastSyncedAt time.Time          `bson:"lastSyncedAt" json:"lastSyncedAt"`
}

// ImportedRoutine caches one routine from the Hevy API. FolderExternalID is a
// soft reference: sync stores the id even when the folder itself has not been
// cached yet, and empty means no folder.
type ImportedRoutine struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	ExternalID       string             `bson:"externalId" json:"externalId"`
	Title            string             `bson:"title" json:"title"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	FolderExternalID string             `bson:"folderExternalId,omitempty" json:"folderExternalId,omitempty"`
	Exercises        []RoutineExercise  `bson:"exercises,omitempty" json:"exercises,omitempty"`
	LastSyncedAt     time.Time          `bson:"lastSyncedAt" json:"lastSyncedAt"`
}

// RoutineExercise is one ordered exercise inside a routine, imported or
// generated. SupersetID groups exercises performed back-to-back; nil means the
// exercise is not part of a superset.
type RoutineExercise struct {
	ExerciseTemplateID string        `bson:"exerciseTemplateId" json:"exerciseTemplateId"`
	Title              string        `bson:"title,omitempty" json:"title,omitempty"`
	SupersetID         *int          `bson:"supersetId,omitempty" json:"supersetId,omitempty"`
	RestSeconds        *int          `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Notes              string        `bson:"notes,omitempty" json:"notes,omitempty"`
	Sets               []ExerciseSet `bson:"sets" json:"sets"`
}

// SetType tags how a set is meant to be performed.
type SetType string

const (
	SetTypeNormal  SetType = "normal"
	SetTypeWarmup  SetType = "warmup"
	SetTypeFailure SetType = "failure"
	SetTypeDropset SetType = "dropset"
)

// RepRange is an inclusive [start, end] target repetition window.
type RepRange struct {
	Start int `bson:"start" json:"start"`
	End   int `bson:"end" json:"end"`
}

// ExerciseSet is a single set within an exercise. Weight and reps are
// pointers because bodyweight or timed sets legitimately omit them.
type ExerciseSet struct {
	Type     SetType   `bson:"type" json:"type"`
	WeightKg *float64  `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	Reps     *int      `bson:"reps,omitempty" json:"reps,omitempty"`
	RepRange *RepRange `bson:"repRange,omitempty" json:"repRange,omitempty"`
}
