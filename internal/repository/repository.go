package repository

import (
	"context"
	"time"

	"fitforge/coach-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrSyncInProgress  = RepositoryError("a sync is already in progress for this user")
	ErrAlreadyExported = RepositoryError("routine index already exported")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ProfileRepository manages the one-per-user training profile.
type ProfileRepository interface {
	// Upsert creates the profile on first submission and replaces the
	// mutable fields afterwards, keyed by userId.
	Upsert(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error)
}

// ExerciseTemplateRepository manages the per-user cache of Hevy exercise
// templates.
type ExerciseTemplateRepository interface {
	Upsert(ctx context.Context, tpl *domain.ImportedExerciseTemplate) error
	ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedExerciseTemplate, error)
	CountByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// RoutineFolderRepository manages the per-user cache of Hevy routine folders.
type RoutineFolderRepository interface {
	Upsert(ctx context.Context, folder *domain.ImportedRoutineFolder) error
	ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedRoutineFolder, error)
}

// RoutineRepository manages the per-user cache of Hevy routines.
type RoutineRepository interface {
	Upsert(ctx context.Context, routine *domain.ImportedRoutine) error
	ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.ImportedRoutine, error)
}

// WorkoutRepository manages the per-user cache of completed Hevy workouts.
type WorkoutRepository interface {
	Upsert(ctx context.Context, workout *domain.ImportedWorkout) error
	ExternalIDs(ctx context.Context, userID primitive.ObjectID) (map[string]struct{}, error)
	// GetSince returns workouts started on or after the cutoff, newest first.
	GetSince(ctx context.Context, userID primitive.ObjectID, cutoff time.Time) ([]domain.ImportedWorkout, error)
	// LatestStartTime returns the start time of the most recent cached
	// workout, or the zero time when none exist.
	LatestStartTime(ctx context.Context, userID primitive.ObjectID) (time.Time, error)
	// DeleteByExternalID removes a cached workout that was deleted upstream.
	// Deleting a workout that is not cached is not an error.
	DeleteByExternalID(ctx context.Context, userID primitive.ObjectID, externalID string) error
}

// SyncStatusRepository manages sync run records. Claim is the concurrency
// guard: it atomically inserts a new non-terminal row and fails with
// ErrSyncInProgress when one already exists for the user.
type SyncStatusRepository interface {
	Claim(ctx context.Context, userID primitive.ObjectID, syncType domain.SyncType) (*domain.SyncStatus, error)
	UpdateProgress(ctx context.Context, id primitive.ObjectID, itemsSynced, totalItems int) error
	Finalize(ctx context.Context, id primitive.ObjectID, state domain.SyncState, itemsSynced, itemsFailed int, errMsg string, itemErrors []domain.SyncItemError) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SyncStatus, error)
	HasActive(ctx context.Context, userID primitive.ObjectID) (bool, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SyncStatus, error)
	// FailStale force-finalizes non-terminal rows older than the cutoff and
	// returns how many were swept. Recovery path for interrupted runs.
	FailStale(ctx context.Context, userID primitive.ObjectID, olderThan time.Time) (int64, error)
}

// GeneratedRoutineRepository persists generation results.
type GeneratedRoutineRepository interface {
	Create(ctx context.Context, gr *domain.GeneratedRoutine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.GeneratedRoutine, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.GeneratedRoutine, error)
	// MarkExported appends an export record for the given program index. It
	// fails with ErrAlreadyExported when that index already has one.
	MarkExported(ctx context.Context, id primitive.ObjectID, index int, hevyRoutineID string) error
}

// ErrorLogRepository stores diagnostic records for later triage.
type ErrorLogRepository interface {
	Create(ctx context.Context, entry *domain.ErrorLog) (primitive.ObjectID, error)
	ListUnresolved(ctx context.Context, limit int64) ([]domain.ErrorLog, error)
	// MarkResolved flags the record as handled and returns the updated
	// document, or ErrNotFound when no such record exists.
	MarkResolved(ctx context.Context, id primitive.ObjectID) (*domain.ErrorLog, error)
}
