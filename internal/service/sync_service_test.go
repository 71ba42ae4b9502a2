package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/hevy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type syncTestEnv struct {
	hevyAPI      *stubHevyAPI
	templateRepo *fakeTemplateRepo
	folderRepo   *fakeFolderRepo
	routineRepo  *fakeRoutineRepo
	workoutRepo  *fakeWorkoutRepo
	statusRepo   *fakeSyncStatusRepo
	service      SyncService
}

func newSyncTestEnv() *syncTestEnv {
	env := &syncTestEnv{
		hevyAPI:      &stubHevyAPI{},
		templateRepo: newFakeTemplateRepo(),
		folderRepo:   newFakeFolderRepo(),
		routineRepo:  newFakeRoutineRepo(),
		workoutRepo:  newFakeWorkoutRepo(),
		statusRepo:   newFakeSyncStatusRepo(),
	}
	env.service = NewSyncService(
		env.hevyAPI,
		env.templateRepo,
		env.folderRepo,
		env.routineRepo,
		env.workoutRepo,
		env.statusRepo,
		2, // page size
		0, // no page delay in tests
	)
	return env
}

func templatePages() func(page, pageSize int) (*hevy.ExerciseTemplatesPage, error) {
	pages := []*hevy.ExerciseTemplatesPage{
		{Page: 1, PageCount: 2, ExerciseTemplates: []hevy.ExerciseTemplate{
			{ID: "bench", Title: "Bench Press", PrimaryMuscleGroup: "chest", Equipment: "barbell"},
			{ID: "squat", Title: "Squat", PrimaryMuscleGroup: "quadriceps", Equipment: "barbell"},
		}},
		{Page: 2, PageCount: 2, ExerciseTemplates: []hevy.ExerciseTemplate{
			{ID: "row", Title: "Barbell Row", PrimaryMuscleGroup: "upper_back", Equipment: "barbell"},
		}},
	}
	return func(page, pageSize int) (*hevy.ExerciseTemplatesPage, error) {
		return pages[page-1], nil
	}
}

func TestSyncExercises(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = templatePages()
	userID := primitive.NewObjectID()

	result, err := env.service.SyncExercises(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, domain.SyncStateCompleted, result.State)
	assert.Len(t, env.templateRepo.templates, 3)

	status, err := env.statusRepo.GetByID(context.Background(), result.StatusID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncTypeExercises, status.Type)
	assert.Equal(t, domain.SyncStateCompleted, status.State)
	assert.NotNil(t, status.CompletedAt)
}

func TestSyncExercises_RerunSkipsCached(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = templatePages()
	userID := primitive.NewObjectID()

	_, err := env.service.SyncExercises(context.Background(), userID)
	require.NoError(t, err)

	result, err := env.service.SyncExercises(context.Background(), userID)
	require.NoError(t, err)

	// Everything already cached: nothing re-upserted, run still completes.
	assert.Equal(t, 0, result.Synced)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, domain.SyncStateCompleted, result.State)
}

func TestSyncExercises_ItemFailureDoesNotAbort(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = templatePages()
	env.templateRepo.upsertErr["squat"] = errors.New("write conflict")
	userID := primitive.NewObjectID()

	result, err := env.service.SyncExercises(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, domain.SyncStateCompletedWithErrors, result.State)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "squat", result.Errors[0].ExternalID)
	assert.Contains(t, result.Errors[0].Message, "write conflict")
}

func TestSyncExercises_PageFetchErrorFailsRun(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = func(page, pageSize int) (*hevy.ExerciseTemplatesPage, error) {
		if page == 1 {
			return &hevy.ExerciseTemplatesPage{Page: 1, PageCount: 2, ExerciseTemplates: []hevy.ExerciseTemplate{
				{ID: "bench", Title: "Bench Press", PrimaryMuscleGroup: "chest", Equipment: "barbell"},
			}}, nil
		}
		return nil, &hevy.APIError{Status: 500, Message: "upstream down"}
	}
	userID := primitive.NewObjectID()

	_, err := env.service.SyncExercises(context.Background(), userID)
	require.Error(t, err)

	// The run finalized as failed, freeing the claim for the next attempt.
	history, listErr := env.statusRepo.ListByUser(context.Background(), userID, 10)
	require.NoError(t, listErr)
	require.Len(t, history, 1)
	assert.Equal(t, domain.SyncStateFailed, history[0].State)
	assert.Contains(t, history[0].ErrorMessage, "page 2")

	active, activeErr := env.service.IsSyncInProgress(context.Background(), userID)
	require.NoError(t, activeErr)
	assert.False(t, active)
}

func TestSyncClaimConflict(t *testing.T) {
	env := newSyncTestEnv()
	userID := primitive.NewObjectID()

	// Simulate a concurrent run holding the claim.
	_, err := env.statusRepo.Claim(context.Background(), userID, domain.SyncTypeWorkouts)
	require.NoError(t, err)

	_, err = env.service.SyncExercises(context.Background(), userID)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// A different user is unaffected.
	_, err = env.service.SyncExercises(context.Background(), primitive.NewObjectID())
	assert.NoError(t, err)
}

func TestSyncRoutineFolders_NumericIDs(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.routineFoldersFn = func(page, pageSize int) (*hevy.RoutineFoldersPage, error) {
		return &hevy.RoutineFoldersPage{Page: 1, PageCount: 1, RoutineFolders: []hevy.RoutineFolder{
			{ID: 42, Title: "Push Pull Legs"},
		}}, nil
	}
	userID := primitive.NewObjectID()

	result, err := env.service.SyncRoutineFolders(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	folder, ok := env.folderRepo.folders["42"]
	require.True(t, ok)
	assert.Equal(t, "Push Pull Legs", folder.Title)
}

func TestSyncRoutines_FolderReference(t *testing.T) {
	env := newSyncTestEnv()
	folderID := int64(42)
	env.hevyAPI.routinesFn = func(page, pageSize int) (*hevy.RoutinesPage, error) {
		return &hevy.RoutinesPage{Page: 1, PageCount: 1, Routines: []hevy.Routine{
			{ID: "r1", Title: "Push Day", FolderID: &folderID, Exercises: []hevy.Exercise{
				{ExerciseTemplateID: "bench", Sets: []hevy.Set{{Type: "normal", WeightKg: floatPtr(80), Reps: intPtr(8)}}},
			}},
			{ID: "r2", Title: "Unfiled"},
		}}, nil
	}
	userID := primitive.NewObjectID()

	result, err := env.service.SyncRoutines(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)

	assert.Equal(t, "42", env.routineRepo.routines["r1"].FolderExternalID)
	assert.Empty(t, env.routineRepo.routines["r2"].FolderExternalID)
	require.Len(t, env.routineRepo.routines["r1"].Exercises, 1)
	assert.Equal(t, 80.0, *env.routineRepo.routines["r1"].Exercises[0].Sets[0].WeightKg)
}

func TestSyncWorkouts_UsesCountForTotal(t *testing.T) {
	env := newSyncTestEnv()
	start := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	env.hevyAPI.workoutCountFn = func() (int, error) { return 2, nil }
	env.hevyAPI.workoutsFn = func(page, pageSize int) (*hevy.WorkoutsPage, error) {
		return &hevy.WorkoutsPage{Page: 1, PageCount: 1, Workouts: []hevy.Workout{
			{ID: "w1", Title: "Push", StartTime: start, EndTime: start.Add(time.Hour)},
			{ID: "w2", Title: "Pull", StartTime: start.AddDate(0, 0, 1), EndTime: start.AddDate(0, 0, 1).Add(time.Hour)},
		}}, nil
	}
	userID := primitive.NewObjectID()

	result, err := env.service.SyncWorkouts(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, env.workoutRepo.workouts, 2)
}

func TestSyncWorkoutsIncremental_AppliesEvents(t *testing.T) {
	env := newSyncTestEnv()
	userID := primitive.NewObjectID()
	start := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)

	// Seed the cache so the event path (not the full walk) is taken.
	cached := domain.ImportedWorkout{UserID: userID, ExternalID: "w1", Title: "Push", StartTime: start}
	stale := domain.ImportedWorkout{UserID: userID, ExternalID: "w-deleted", Title: "Old", StartTime: start.AddDate(0, 0, -3)}
	require.NoError(t, env.workoutRepo.Upsert(context.Background(), &cached))
	require.NoError(t, env.workoutRepo.Upsert(context.Background(), &stale))

	var gotSince time.Time
	env.hevyAPI.workoutEventsFn = func(since time.Time, page, pageSize int) (*hevy.WorkoutEventsPage, error) {
		gotSince = since
		updated := hevy.Workout{ID: "w2", Title: "Legs", StartTime: start.AddDate(0, 0, 1)}
		return &hevy.WorkoutEventsPage{Page: 1, PageCount: 1, Events: []hevy.WorkoutEvent{
			{Type: "updated", Workout: &updated},
			{Type: "deleted", ID: "w-deleted"},
		}}, nil
	}

	result, err := env.service.SyncWorkoutsIncremental(context.Background(), userID)
	require.NoError(t, err)

	// The feed is walked from the newest cached start time.
	assert.Equal(t, start, gotSince)
	assert.Equal(t, 2, result.Synced)
	assert.Contains(t, env.workoutRepo.workouts, "w2")
	assert.NotContains(t, env.workoutRepo.workouts, "w-deleted")
}

func TestFullSync_RunsAllStagesUnderOneClaim(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = templatePages()
	env.hevyAPI.routineFoldersFn = func(page, pageSize int) (*hevy.RoutineFoldersPage, error) {
		return &hevy.RoutineFoldersPage{Page: 1, PageCount: 1, RoutineFolders: []hevy.RoutineFolder{{ID: 1, Title: "Block A"}}}, nil
	}
	userID := primitive.NewObjectID()

	result, err := env.service.FullSync(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, domain.SyncTypeFull, result.Type)
	// 3 templates + 1 folder; routines and workouts default to empty pages.
	assert.Equal(t, 4, result.Synced)

	history, err := env.statusRepo.ListByUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestFullSync_StageErrorFailsRun(t *testing.T) {
	env := newSyncTestEnv()
	env.hevyAPI.exerciseTemplatesFn = func(page, pageSize int) (*hevy.ExerciseTemplatesPage, error) {
		return nil, &hevy.APIError{Status: 401, Message: "bad key"}
	}
	userID := primitive.NewObjectID()

	_, err := env.service.FullSync(context.Background(), userID)
	require.Error(t, err)

	var apiErr *hevy.APIError
	assert.ErrorAs(t, err, &apiErr)

	history, listErr := env.statusRepo.ListByUser(context.Background(), userID, 10)
	require.NoError(t, listErr)
	require.Len(t, history, 1)
	assert.Equal(t, domain.SyncStateFailed, history[0].State)
}

func TestCleanupStale(t *testing.T) {
	env := newSyncTestEnv()
	userID := primitive.NewObjectID()

	status, err := env.statusRepo.Claim(context.Background(), userID, domain.SyncTypeFull)
	require.NoError(t, err)
	// Backdate the run far past the staleness cutoff.
	env.statusRepo.statuses[status.ID].StartedAt = time.Now().Add(-2 * time.Hour)

	swept, err := env.service.CleanupStale(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	// The claim is free again.
	_, err = env.statusRepo.Claim(context.Background(), userID, domain.SyncTypeExercises)
	assert.NoError(t, err)
}

func TestLibrary(t *testing.T) {
	env := newSyncTestEnv()
	userID := primitive.NewObjectID()

	require.NoError(t, env.templateRepo.Upsert(context.Background(), &domain.ImportedExerciseTemplate{
		UserID: userID, ExternalID: "bench", Title: "Bench Press",
	}))
	require.NoError(t, env.folderRepo.Upsert(context.Background(), &domain.ImportedRoutineFolder{
		UserID: userID, ExternalID: "42", Title: "Push Day",
	}))
	require.NoError(t, env.routineRepo.Upsert(context.Background(), &domain.ImportedRoutine{
		UserID: userID, ExternalID: "r1", Title: "Push A", FolderExternalID: "42",
	}))
	require.NoError(t, env.routineRepo.Upsert(context.Background(), &domain.ImportedRoutine{
		UserID: userID, ExternalID: "r2", Title: "Pull A",
	}))

	library, err := env.service.Library(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), library.ExerciseTemplateCount)
	require.Len(t, library.Folders, 1)
	assert.Equal(t, "Push Day", library.Folders[0].Title)
	require.Len(t, library.Routines, 2)
	assert.Equal(t, "42", library.Routines[0].FolderExternalID)
}
