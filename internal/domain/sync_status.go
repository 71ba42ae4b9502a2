package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncType identifies which resource a sync run covers.
type SyncType string

const (
	SyncTypeExercises           SyncType = "exercises"
	SyncTypeRoutines            SyncType = "routines"
	SyncTypeRoutineFolders      SyncType = "routine_folders"
	SyncTypeWorkouts            SyncType = "workouts"
	SyncTypeWorkoutsIncremental SyncType = "workouts_incremental"
	SyncTypeFull                SyncType = "full"
)

// SyncState is the lifecycle state of a sync run.
type SyncState string

const (
	SyncStatePending             SyncState = "pending"
	SyncStateInProgress          SyncState = "in_progress"
	SyncStateCompleted           SyncState = "completed"
	SyncStateCompletedWithErrors SyncState = "completed_with_errors"
	SyncStateFailed              SyncState = "failed"
)

// IsTerminal reports whether the run has finished (in any outcome).
func (s SyncState) IsTerminal() bool {
	return s == SyncStateCompleted || s == SyncStateCompletedWithErrors || s == SyncStateFailed
}

// SyncItemError records one item that failed during a run without aborting it.
type SyncItemError struct {
	ExternalID string `bson:"externalId" json:"externalId"`
	Message    string `bson:"message" json:"message"`
}

// SyncStatus is the run record for one sync. It doubles as the mutual
// exclusion signal: a partial unique index allows at most one non-terminal
// row per user, so inserting a new row is an atomic claim.
type SyncStatus struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Type         SyncType           `bson:"type" json:"type"`
	State        SyncState          `bson:"state" json:"state"`
	ItemsSynced  int                `bson:"itemsSynced" json:"itemsSynced"`
	ItemsFailed  int                `bson:"itemsFailed" json:"itemsFailed"`
	TotalItems   int                `bson:"totalItems,omitempty" json:"totalItems,omitempty"` // Estimate, when known up front
	ErrorMessage string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	ItemErrors   []SyncItemError    `bson:"itemErrors,omitempty" json:"itemErrors,omitempty"`
	StartedAt    time.Time          `bson:"startedAt" json:"startedAt"`
	CompletedAt  *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}
