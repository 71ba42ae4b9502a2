package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"fitforge/coach-app/internal/ai"
	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/hevy"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes shared by the service tests. They implement the repository
// interfaces with enough fidelity for single-user scenarios, including the
// one-active-sync claim semantics and the once-per-index export guard.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	copied := *user
	copied.ID = id
	f.users[id] = &copied
	return id, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

type fakeProfileRepo struct {
	profile *domain.UserProfile
}

func (f *fakeProfileRepo) Upsert(_ context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	f.profile = profile
	return profile, nil
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.UserProfile, error) {
	if f.profile == nil || f.profile.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return f.profile, nil
}

type fakeTemplateRepo struct {
	templates map[string]domain.ImportedExerciseTemplate // keyed by externalId
	upsertErr map[string]error                           // per-externalId failure injection
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{
		templates: make(map[string]domain.ImportedExerciseTemplate),
		upsertErr: make(map[string]error),
	}
}

func (f *fakeTemplateRepo) Upsert(_ context.Context, tpl *domain.ImportedExerciseTemplate) error {
	if err := f.upsertErr[tpl.ExternalID]; err != nil {
		return err
	}
	f.templates[tpl.ExternalID] = *tpl
	return nil
}

func (f *fakeTemplateRepo) ExternalIDs(_ context.Context, _ primitive.ObjectID) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.templates))
	for id := range f.templates {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeTemplateRepo) GetByUserID(_ context.Context, _ primitive.ObjectID) ([]domain.ImportedExerciseTemplate, error) {
	out := make([]domain.ImportedExerciseTemplate, 0, len(f.templates))
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (f *fakeTemplateRepo) CountByUserID(_ context.Context, _ primitive.ObjectID) (int64, error) {
	return int64(len(f.templates)), nil
}

type fakeFolderRepo struct {
	folders map[string]domain.ImportedRoutineFolder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[string]domain.ImportedRoutineFolder)}
}

func (f *fakeFolderRepo) Upsert(_ context.Context, folder *domain.ImportedRoutineFolder) error {
	f.folders[folder.ExternalID] = *folder
	return nil
}

func (f *fakeFolderRepo) ExternalIDs(_ context.Context, _ primitive.ObjectID) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.folders))
	for id := range f.folders {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeFolderRepo) GetByUserID(_ context.Context, _ primitive.ObjectID) ([]domain.ImportedRoutineFolder, error) {
	out := make([]domain.ImportedRoutineFolder, 0, len(f.folders))
	for _, folder := range f.folders {
		out = append(out, folder)
	}
	return out, nil
}

type fakeRoutineRepo struct {
	routines map[string]domain.ImportedRoutine
}

func newFakeRoutineRepo() *fakeRoutineRepo {
	return &fakeRoutineRepo{routines: make(map[string]domain.ImportedRoutine)}
}

func (f *fakeRoutineRepo) Upsert(_ context.Context, routine *domain.ImportedRoutine) error {
	f.routines[routine.ExternalID] = *routine
	return nil
}

func (f *fakeRoutineRepo) ExternalIDs(_ context.Context, _ primitive.ObjectID) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.routines))
	for id := range f.routines {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeRoutineRepo) GetByUserID(_ context.Context, _ primitive.ObjectID) ([]domain.ImportedRoutine, error) {
	out := make([]domain.ImportedRoutine, 0, len(f.routines))
	for _, routine := range f.routines {
		out = append(out, routine)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

type fakeWorkoutRepo struct {
	workouts map[string]domain.ImportedWorkout
}

func newFakeWorkoutRepo() *fakeWorkoutRepo {
	return &fakeWorkoutRepo{workouts: make(map[string]domain.ImportedWorkout)}
}

func (f *fakeWorkoutRepo) Upsert(_ context.Context, workout *domain.ImportedWorkout) error {
	f.workouts[workout.ExternalID] = *workout
	return nil
}

func (f *fakeWorkoutRepo) ExternalIDs(_ context.Context, _ primitive.ObjectID) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(f.workouts))
	for id := range f.workouts {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeWorkoutRepo) GetSince(_ context.Context, _ primitive.ObjectID, cutoff time.Time) ([]domain.ImportedWorkout, error) {
	out := make([]domain.ImportedWorkout, 0, len(f.workouts))
	for _, w := range f.workouts {
		if !w.StartTime.Before(cutoff) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (f *fakeWorkoutRepo) LatestStartTime(_ context.Context, _ primitive.ObjectID) (time.Time, error) {
	var latest time.Time
	for _, w := range f.workouts {
		if w.StartTime.After(latest) {
			latest = w.StartTime
		}
	}
	return latest, nil
}

func (f *fakeWorkoutRepo) DeleteByExternalID(_ context.Context, _ primitive.ObjectID, externalID string) error {
	delete(f.workouts, externalID)
	return nil
}

type fakeSyncStatusRepo struct {
	mu       sync.Mutex
	statuses map[primitive.ObjectID]*domain.SyncStatus
}

func newFakeSyncStatusRepo() *fakeSyncStatusRepo {
	return &fakeSyncStatusRepo{statuses: make(map[primitive.ObjectID]*domain.SyncStatus)}
}

func (f *fakeSyncStatusRepo) Claim(_ context.Context, userID primitive.ObjectID, syncType domain.SyncType) (*domain.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, status := range f.statuses {
		if status.UserID == userID && !status.State.IsTerminal() {
			return nil, repository.ErrSyncInProgress
		}
	}
	status := &domain.SyncStatus{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      syncType,
		State:     domain.SyncStateInProgress,
		StartedAt: time.Now(),
	}
	f.statuses[status.ID] = status
	return status, nil
}

func (f *fakeSyncStatusRepo) UpdateProgress(_ context.Context, id primitive.ObjectID, itemsSynced, totalItems int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[id]
	if !ok {
		return repository.ErrNotFound
	}
	status.ItemsSynced = itemsSynced
	status.TotalItems = totalItems
	return nil
}

func (f *fakeSyncStatusRepo) Finalize(_ context.Context, id primitive.ObjectID, state domain.SyncState, itemsSynced, itemsFailed int, errMsg string, itemErrors []domain.SyncItemError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status.State.IsTerminal() {
		return repository.ErrUpdateFailed
	}
	now := time.Now()
	status.State = state
	status.ItemsSynced = itemsSynced
	status.ItemsFailed = itemsFailed
	status.ErrorMessage = errMsg
	status.ItemErrors = itemErrors
	status.CompletedAt = &now
	return nil
}

func (f *fakeSyncStatusRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *status
	return &copied, nil
}

func (f *fakeSyncStatusRepo) HasActive(_ context.Context, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, status := range f.statuses {
		if status.UserID == userID && !status.State.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSyncStatusRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]domain.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SyncStatus, 0, len(f.statuses))
	for _, status := range f.statuses {
		if status.UserID == userID {
			out = append(out, *status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSyncStatusRepo) FailStale(_ context.Context, userID primitive.ObjectID, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	now := time.Now()
	for _, status := range f.statuses {
		if status.UserID == userID && !status.State.IsTerminal() && status.StartedAt.Before(olderThan) {
			status.State = domain.SyncStateFailed
			status.ErrorMessage = "sync interrupted and cleaned up"
			status.CompletedAt = &now
			swept++
		}
	}
	return swept, nil
}

type fakeGeneratedRepo struct {
	routines map[primitive.ObjectID]*domain.GeneratedRoutine
}

func newFakeGeneratedRepo() *fakeGeneratedRepo {
	return &fakeGeneratedRepo{routines: make(map[primitive.ObjectID]*domain.GeneratedRoutine)}
}

func (f *fakeGeneratedRepo) Create(_ context.Context, gr *domain.GeneratedRoutine) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	copied := *gr
	copied.ID = id
	f.routines[id] = &copied
	return id, nil
}

func (f *fakeGeneratedRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.GeneratedRoutine, error) {
	gr, ok := f.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *gr
	return &copied, nil
}

func (f *fakeGeneratedRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]domain.GeneratedRoutine, error) {
	out := make([]domain.GeneratedRoutine, 0, len(f.routines))
	for _, gr := range f.routines {
		if gr.UserID == userID {
			out = append(out, *gr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGeneratedRepo) MarkExported(_ context.Context, id primitive.ObjectID, index int, hevyRoutineID string) error {
	gr, ok := f.routines[id]
	if !ok {
		return repository.ErrNotFound
	}
	if gr.ExportFor(index) != nil {
		return repository.ErrAlreadyExported
	}
	gr.Exports = append(gr.Exports, domain.ExportRecord{
		RoutineIndex:  index,
		HevyRoutineID: hevyRoutineID,
		ExportedAt:    time.Now(),
	})
	return nil
}

type fakeErrorLogRepo struct {
	entries []domain.ErrorLog
}

func (f *fakeErrorLogRepo) Create(_ context.Context, entry *domain.ErrorLog) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	copied := *entry
	copied.ID = id
	f.entries = append(f.entries, copied)
	return id, nil
}

func (f *fakeErrorLogRepo) ListUnresolved(_ context.Context, limit int64) ([]domain.ErrorLog, error) {
	out := make([]domain.ErrorLog, 0, len(f.entries))
	for _, entry := range f.entries {
		if !entry.Resolved {
			out = append(out, entry)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeErrorLogRepo) MarkResolved(_ context.Context, id primitive.ObjectID) (*domain.ErrorLog, error) {
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Resolved = true
			copied := f.entries[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

// stubArtifactStore implements storage.ArtifactStore in memory and records
// every operation.
type stubArtifactStore struct {
	objects    map[string][]byte
	deleted    []string
	putErr     error
	presignErr error
}

func newStubArtifactStore() *stubArtifactStore {
	return &stubArtifactStore{objects: make(map[string][]byte)}
}

func (s *stubArtifactStore) Put(_ context.Context, objectKey, _ string, body []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[objectKey] = body
	return nil
}

func (s *stubArtifactStore) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://artifacts.test/" + objectKey, nil
}

func (s *stubArtifactStore) DeleteObject(_ context.Context, objectKey string) error {
	delete(s.objects, objectKey)
	s.deleted = append(s.deleted, objectKey)
	return nil
}

// stubHevyAPI implements hevy.API with settable function fields. Unset list
// endpoints return a single empty page.
type stubHevyAPI struct {
	exerciseTemplatesFn func(page, pageSize int) (*hevy.ExerciseTemplatesPage, error)
	routineFoldersFn    func(page, pageSize int) (*hevy.RoutineFoldersPage, error)
	routinesFn          func(page, pageSize int) (*hevy.RoutinesPage, error)
	workoutsFn          func(page, pageSize int) (*hevy.WorkoutsPage, error)
	workoutCountFn      func() (int, error)
	workoutEventsFn     func(since time.Time, page, pageSize int) (*hevy.WorkoutEventsPage, error)
	createRoutineFn     func(req *hevy.CreateRoutineRequest) (*hevy.Routine, error)

	createdRoutines []*hevy.CreateRoutineRequest
}

func (s *stubHevyAPI) ExerciseTemplates(_ context.Context, page, pageSize int) (*hevy.ExerciseTemplatesPage, error) {
	if s.exerciseTemplatesFn == nil {
		return &hevy.ExerciseTemplatesPage{Page: page, PageCount: 1}, nil
	}
	return s.exerciseTemplatesFn(page, pageSize)
}

func (s *stubHevyAPI) RoutineFolders(_ context.Context, page, pageSize int) (*hevy.RoutineFoldersPage, error) {
	if s.routineFoldersFn == nil {
		return &hevy.RoutineFoldersPage{Page: page, PageCount: 1}, nil
	}
	return s.routineFoldersFn(page, pageSize)
}

func (s *stubHevyAPI) Routines(_ context.Context, page, pageSize int) (*hevy.RoutinesPage, error) {
	if s.routinesFn == nil {
		return &hevy.RoutinesPage{Page: page, PageCount: 1}, nil
	}
	return s.routinesFn(page, pageSize)
}

func (s *stubHevyAPI) Workouts(_ context.Context, page, pageSize int) (*hevy.WorkoutsPage, error) {
	if s.workoutsFn == nil {
		return &hevy.WorkoutsPage{Page: page, PageCount: 1}, nil
	}
	return s.workoutsFn(page, pageSize)
}

func (s *stubHevyAPI) WorkoutCount(_ context.Context) (int, error) {
	if s.workoutCountFn == nil {
		return 0, nil
	}
	return s.workoutCountFn()
}

func (s *stubHevyAPI) WorkoutEvents(_ context.Context, since time.Time, page, pageSize int) (*hevy.WorkoutEventsPage, error) {
	if s.workoutEventsFn == nil {
		return &hevy.WorkoutEventsPage{Page: page, PageCount: 1}, nil
	}
	return s.workoutEventsFn(since, page, pageSize)
}

func (s *stubHevyAPI) CreateRoutine(_ context.Context, req *hevy.CreateRoutineRequest) (*hevy.Routine, error) {
	s.createdRoutines = append(s.createdRoutines, req)
	if s.createRoutineFn == nil {
		return &hevy.Routine{ID: "hevy-routine-1", Title: req.Routine.Title}, nil
	}
	return s.createRoutineFn(req)
}

func (s *stubHevyAPI) UpdateRoutine(_ context.Context, _ string, req *hevy.CreateRoutineRequest) (*hevy.Routine, error) {
	return &hevy.Routine{ID: "hevy-routine-1", Title: req.Routine.Title}, nil
}

// stubGenerator returns canned completions (or errors) in order of call.
type stubGenerator struct {
	completions []string
	errs        []error
	calls       int
	prompts     []ai.GenerateRequest
}

func (s *stubGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, req)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.completions) {
		return s.completions[idx], nil
	}
	return "", nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

// stubContextBuilder returns a fixed training context.
type stubContextBuilder struct {
	tc  *domain.TrainingContext
	err error
}

func (s *stubContextBuilder) BuildTrainingContext(_ context.Context, _ primitive.ObjectID) (*domain.TrainingContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tc, nil
}
