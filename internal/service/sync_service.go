package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/hevy"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// Runs older than this with a non-terminal state are considered
	// interrupted (crashed process, lost goroutine) and swept by Cleanup.
	staleSyncAfter = 30 * time.Minute

	// Cap on per-item errors stored in a run record. Counters keep the
	// true totals.
	itemErrorLimit = 50

	backgroundSyncTimeout = 30 * time.Minute
)

// ErrSyncInProgress mirrors the repository claim conflict for API callers.
var ErrSyncInProgress = repository.ErrSyncInProgress

// SyncResult summarizes one finished sync run.
type SyncResult struct {
	StatusID primitive.ObjectID     `json:"statusId"`
	Type     domain.SyncType        `json:"type"`
	State    domain.SyncState       `json:"state"`
	Synced   int                    `json:"synced"`
	Failed   int                    `json:"failed"`
	Total    int                    `json:"total"`
	Errors   []domain.SyncItemError `json:"errors,omitempty"`
}

// SyncService pulls the user's Hevy account into the local cache. Every run
// is recorded as a SyncStatus row; at most one run per user is active at a
// time.
type SyncService interface {
	SyncExercises(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	SyncRoutineFolders(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	SyncRoutines(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	SyncWorkouts(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	SyncWorkoutsIncremental(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	// FullSync runs exercises, folders, routines and workouts under a single
	// claim, in dependency order.
	FullSync(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error)
	// StartFullSync claims the run, then executes it on a background
	// goroutine. The returned status id can be polled via SyncHistory.
	StartFullSync(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error)
	GetStatus(ctx context.Context, userID, statusID primitive.ObjectID) (*domain.SyncStatus, error)
	SyncHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SyncStatus, error)
	IsSyncInProgress(ctx context.Context, userID primitive.ObjectID) (bool, error)
	// CleanupStale fails interrupted runs so the user can sync again.
	CleanupStale(ctx context.Context, userID primitive.ObjectID) (int64, error)
	// Library returns the locally cached routines and folders for browsing.
	Library(ctx context.Context, userID primitive.ObjectID) (*ImportedLibrary, error)
}

// ImportedLibrary is a browse view over the local caches: the synced folders
// and routines plus how many exercise templates back them.
type ImportedLibrary struct {
	ExerciseTemplateCount int64                          `json:"exerciseTemplateCount"`
	Folders               []domain.ImportedRoutineFolder `json:"folders"`
	Routines              []domain.ImportedRoutine       `json:"routines"`
}

type syncService struct {
	hevyClient   hevy.API
	templateRepo repository.ExerciseTemplateRepository
	folderRepo   repository.RoutineFolderRepository
	routineRepo  repository.RoutineRepository
	workoutRepo  repository.WorkoutRepository
	statusRepo   repository.SyncStatusRepository

	pageSize  int
	pageDelay time.Duration
	now       func() time.Time
}

// NewSyncService creates a new SyncService. pageSize and pageDelay control
// how the Hevy list endpoints are walked.
func NewSyncService(
	hevyClient hevy.API,
	templateRepo repository.ExerciseTemplateRepository,
	folderRepo repository.RoutineFolderRepository,
	routineRepo repository.RoutineRepository,
	workoutRepo repository.WorkoutRepository,
	statusRepo repository.SyncStatusRepository,
	pageSize int,
	pageDelay time.Duration,
) SyncService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &syncService{
		hevyClient:   hevyClient,
		templateRepo: templateRepo,
		folderRepo:   folderRepo,
		routineRepo:  routineRepo,
		workoutRepo:  workoutRepo,
		statusRepo:   statusRepo,
		pageSize:     pageSize,
		pageDelay:    pageDelay,
		now:          time.Now,
	}
}

// tally accumulates run progress across pages (and, for full sync, across
// stages).
type tally struct {
	synced int
	failed int
	total  int
	errors []domain.SyncItemError
}

func (t *tally) fail(externalID string, err error) {
	t.failed++
	if len(t.errors) < itemErrorLimit {
		t.errors = append(t.errors, domain.SyncItemError{ExternalID: externalID, Message: err.Error()})
	}
}

func (s *syncService) SyncExercises(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeExercises, s.syncExercisesInto)
}

func (s *syncService) SyncRoutineFolders(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeRoutineFolders, s.syncRoutineFoldersInto)
}

func (s *syncService) SyncRoutines(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeRoutines, s.syncRoutinesInto)
}

func (s *syncService) SyncWorkouts(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeWorkouts, s.syncWorkoutsInto)
}

func (s *syncService) SyncWorkoutsIncremental(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeWorkoutsIncremental, s.syncWorkoutEventsInto)
}

func (s *syncService) FullSync(ctx context.Context, userID primitive.ObjectID) (*SyncResult, error) {
	return s.runClaimed(ctx, userID, domain.SyncTypeFull, s.fullSyncInto)
}

// StartFullSync claims synchronously so the caller gets an immediate
// conflict error, then runs the stages in the background.
func (s *syncService) StartFullSync(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error) {
	status, err := s.statusRepo.Claim(ctx, userID, domain.SyncTypeFull)
	if err != nil {
		return primitive.NilObjectID, err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
		defer cancel()
		if _, err := s.execute(bgCtx, userID, status, s.fullSyncInto); err != nil {
			log.Printf("ERROR: background full sync for user %s failed: %v", userID.Hex(), err)
		}
	}()

	return status.ID, nil
}

func (s *syncService) GetStatus(ctx context.Context, userID, statusID primitive.ObjectID) (*domain.SyncStatus, error) {
	status, err := s.statusRepo.GetByID(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if status.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return status, nil
}

func (s *syncService) SyncHistory(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SyncStatus, error) {
	return s.statusRepo.ListByUser(ctx, userID, limit)
}

func (s *syncService) IsSyncInProgress(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return s.statusRepo.HasActive(ctx, userID)
}

func (s *syncService) CleanupStale(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.statusRepo.FailStale(ctx, userID, s.now().Add(-staleSyncAfter))
}

func (s *syncService) Library(ctx context.Context, userID primitive.ObjectID) (*ImportedLibrary, error) {
	templateCount, err := s.templateRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count exercise templates: %w", err)
	}
	folders, err := s.folderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load routine folders: %w", err)
	}
	routines, err := s.routineRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load routines: %w", err)
	}
	return &ImportedLibrary{
		ExerciseTemplateCount: templateCount,
		Folders:               folders,
		Routines:              routines,
	}, nil
}

// runClaimed claims a run record, executes the stage function and finalizes
// the record whatever happens.
func (s *syncService) runClaimed(ctx context.Context, userID primitive.ObjectID, syncType domain.SyncType, stage stageFunc) (*SyncResult, error) {
	status, err := s.statusRepo.Claim(ctx, userID, syncType)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, userID, status, stage)
}

type stageFunc func(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error

func (s *syncService) execute(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, stage stageFunc) (*SyncResult, error) {
	t := &tally{}
	runErr := stage(ctx, userID, status, t)

	state := domain.SyncStateCompleted
	errMsg := ""
	switch {
	case runErr != nil:
		state = domain.SyncStateFailed
		errMsg = runErr.Error()
	case t.failed > 0:
		state = domain.SyncStateCompletedWithErrors
	}

	if err := s.statusRepo.Finalize(ctx, status.ID, state, t.synced, t.failed, errMsg, t.errors); err != nil {
		log.Printf("WARN: failed to finalize sync status %s: %v", status.ID.Hex(), err)
	}

	if runErr != nil {
		return nil, fmt.Errorf("%s sync: %w", status.Type, runErr)
	}
	return &SyncResult{
		StatusID: status.ID,
		Type:     status.Type,
		State:    state,
		Synced:   t.synced,
		Failed:   t.failed,
		Total:    t.total,
		Errors:   t.errors,
	}, nil
}

// fullSyncInto runs all stages under the already-claimed record. The first
// stage error aborts the run; per-item failures do not.
func (s *syncService) fullSyncInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	stages := []struct {
		name string
		fn   stageFunc
	}{
		{"exercises", s.syncExercisesInto},
		{"routine folders", s.syncRoutineFoldersInto},
		{"routines", s.syncRoutinesInto},
		{"workouts", s.syncWorkoutsInto},
	}
	for _, stage := range stages {
		if err := stage.fn(ctx, userID, status, t); err != nil {
			return fmt.Errorf("%s stage: %w", stage.name, err)
		}
	}
	return nil
}

func (s *syncService) syncExercisesInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	cached, err := s.templateRepo.ExternalIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cached template ids: %w", err)
	}

	for page := 1; ; page++ {
		p, err := s.hevyClient.ExerciseTemplates(ctx, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch exercise templates page %d: %w", page, err)
		}
		t.total += len(p.ExerciseTemplates)

		for _, tpl := range p.ExerciseTemplates {
			if _, ok := cached[tpl.ID]; ok {
				continue
			}
			imported := importedTemplateFromHevy(userID, tpl, s.now())
			if err := s.templateRepo.Upsert(ctx, &imported); err != nil {
				t.fail(tpl.ID, err)
				continue
			}
			t.synced++
		}
		s.reportProgress(ctx, status.ID, t)

		if page >= p.PageCount {
			return nil
		}
		if err := s.pausePage(ctx); err != nil {
			return err
		}
	}
}

func (s *syncService) syncRoutineFoldersInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	cached, err := s.folderRepo.ExternalIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cached folder ids: %w", err)
	}

	for page := 1; ; page++ {
		p, err := s.hevyClient.RoutineFolders(ctx, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch routine folders page %d: %w", page, err)
		}
		t.total += len(p.RoutineFolders)

		for _, folder := range p.RoutineFolders {
			externalID := strconv.FormatInt(folder.ID, 10)
			if _, ok := cached[externalID]; ok {
				continue
			}
			imported := domain.ImportedRoutineFolder{
				UserID:       userID,
				ExternalID:   externalID,
				Title:        folder.Title,
				LastSyncedAt: s.now(),
			}
			if err := s.folderRepo.Upsert(ctx, &imported); err != nil {
				t.fail(externalID, err)
				continue
			}
			t.synced++
		}
		s.reportProgress(ctx, status.ID, t)

		if page >= p.PageCount {
			return nil
		}
		if err := s.pausePage(ctx); err != nil {
			return err
		}
	}
}

func (s *syncService) syncRoutinesInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	cached, err := s.routineRepo.ExternalIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cached routine ids: %w", err)
	}

	for page := 1; ; page++ {
		p, err := s.hevyClient.Routines(ctx, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch routines page %d: %w", page, err)
		}
		t.total += len(p.Routines)

		for _, routine := range p.Routines {
			if _, ok := cached[routine.ID]; ok {
				continue
			}
			imported := importedRoutineFromHevy(userID, routine, s.now())
			if err := s.routineRepo.Upsert(ctx, &imported); err != nil {
				t.fail(routine.ID, err)
				continue
			}
			t.synced++
		}
		s.reportProgress(ctx, status.ID, t)

		if page >= p.PageCount {
			return nil
		}
		if err := s.pausePage(ctx); err != nil {
			return err
		}
	}
}

func (s *syncService) syncWorkoutsInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	cached, err := s.workoutRepo.ExternalIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cached workout ids: %w", err)
	}

	// The count endpoint lets the run report a meaningful total before the
	// first page lands.
	if count, err := s.hevyClient.WorkoutCount(ctx); err == nil {
		t.total += count
		s.reportProgress(ctx, status.ID, t)
	} else {
		log.Printf("WARN: workout count unavailable for user %s: %v", userID.Hex(), err)
	}

	for page := 1; ; page++ {
		p, err := s.hevyClient.Workouts(ctx, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch workouts page %d: %w", page, err)
		}

		for _, workout := range p.Workouts {
			if _, ok := cached[workout.ID]; ok {
				continue
			}
			imported := importedWorkoutFromHevy(userID, workout, s.now())
			if err := s.workoutRepo.Upsert(ctx, &imported); err != nil {
				t.fail(workout.ID, err)
				continue
			}
			t.synced++
		}
		s.reportProgress(ctx, status.ID, t)

		if page >= p.PageCount {
			return nil
		}
		if err := s.pausePage(ctx); err != nil {
			return err
		}
	}
}

// syncWorkoutEventsInto walks the update/delete event feed since the newest
// cached workout. With an empty cache it falls back to the full workout walk
// under the same claim.
func (s *syncService) syncWorkoutEventsInto(ctx context.Context, userID primitive.ObjectID, status *domain.SyncStatus, t *tally) error {
	since, err := s.workoutRepo.LatestStartTime(ctx, userID)
	if err != nil {
		return fmt.Errorf("load latest workout time: %w", err)
	}
	if since.IsZero() {
		return s.syncWorkoutsInto(ctx, userID, status, t)
	}

	for page := 1; ; page++ {
		p, err := s.hevyClient.WorkoutEvents(ctx, since, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch workout events page %d: %w", page, err)
		}
		t.total += len(p.Events)

		for _, event := range p.Events {
			switch event.Type {
			case "updated":
				if event.Workout == nil {
					t.fail("", errors.New("updated event without workout payload"))
					continue
				}
				imported := importedWorkoutFromHevy(userID, *event.Workout, s.now())
				if err := s.workoutRepo.Upsert(ctx, &imported); err != nil {
					t.fail(event.Workout.ID, err)
					continue
				}
				t.synced++
			case "deleted":
				if err := s.workoutRepo.DeleteByExternalID(ctx, userID, event.ID); err != nil {
					t.fail(event.ID, err)
					continue
				}
				t.synced++
			default:
				// Unknown event types are skipped, not failed: the feed may
				// grow new types.
			}
		}
		s.reportProgress(ctx, status.ID, t)

		if page >= p.PageCount {
			return nil
		}
		if err := s.pausePage(ctx); err != nil {
			return err
		}
	}
}

func (s *syncService) reportProgress(ctx context.Context, statusID primitive.ObjectID, t *tally) {
	if err := s.statusRepo.UpdateProgress(ctx, statusID, t.synced, t.total); err != nil {
		log.Printf("WARN: failed to update sync progress for %s: %v", statusID.Hex(), err)
	}
}

// pausePage spaces page requests to stay friendly with the API rate limit.
func (s *syncService) pausePage(ctx context.Context) error {
	if s.pageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.pageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Hevy payload to domain converters.

func importedTemplateFromHevy(userID primitive.ObjectID, tpl hevy.ExerciseTemplate, now time.Time) domain.ImportedExerciseTemplate {
	return domain.ImportedExerciseTemplate{
		UserID:           userID,
		ExternalID:       tpl.ID,
		Title:            tpl.Title,
		PrimaryMuscle:    tpl.PrimaryMuscleGroup,
		SecondaryMuscles: tpl.SecondaryMuscleGroups,
		Equipment:        tpl.Equipment,
		IsCustom:         tpl.IsCustom,
		LastSyncedAt:     now,
	}
}

func importedRoutineFromHevy(userID primitive.ObjectID, routine hevy.Routine, now time.Time) domain.ImportedRoutine {
	imported := domain.ImportedRoutine{
		UserID:       userID,
		ExternalID:   routine.ID,
		Title:        routine.Title,
		Notes:        routine.Notes,
		Exercises:    exercisesFromHevy(routine.Exercises),
		LastSyncedAt: now,
	}
	if routine.FolderID != nil {
		imported.FolderExternalID = strconv.FormatInt(*routine.FolderID, 10)
	}
	return imported
}

func importedWorkoutFromHevy(userID primitive.ObjectID, workout hevy.Workout, now time.Time) domain.ImportedWorkout {
	return domain.ImportedWorkout{
		UserID:       userID,
		ExternalID:   workout.ID,
		Title:        workout.Title,
		Description:  workout.Description,
		StartTime:    workout.StartTime,
		EndTime:      workout.EndTime,
		Exercises:    exercisesFromHevy(workout.Exercises),
		LastSyncedAt: now,
	}
}

func exercisesFromHevy(exercises []hevy.Exercise) []domain.RoutineExercise {
	if len(exercises) == 0 {
		return nil
	}
	out := make([]domain.RoutineExercise, 0, len(exercises))
	for _, ex := range exercises {
		converted := domain.RoutineExercise{
			ExerciseTemplateID: ex.ExerciseTemplateID,
			Title:              ex.Title,
			SupersetID:         ex.SupersetID,
			RestSeconds:        ex.RestSeconds,
			Notes:              ex.Notes,
			Sets:               make([]domain.ExerciseSet, 0, len(ex.Sets)),
		}
		for _, set := range ex.Sets {
			ds := domain.ExerciseSet{
				Type:     domain.SetType(set.Type),
				WeightKg: set.WeightKg,
				Reps:     set.Reps,
			}
			if set.RepRange != nil {
				ds.RepRange = &domain.RepRange{Start: set.RepRange.Start, End: set.RepRange.End}
			}
			converted.Sets = append(converted.Sets, ds)
		}
		out = append(out, converted)
	}
	return out
}
