package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"fitforge/coach-app/internal/ai"
	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/hevy"
	"fitforge/coach-app/internal/repository"
	"fitforge/coach-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxGenerationAttempts = 3

// Service-specific error constants. The attempt loop classifies every failed
// attempt as one of these so callers can map them to user-facing messages
// with errors.Is instead of matching message substrings.
var (
	ErrGenerationValidation = errors.New("generation request validation failed")
	ErrEmptyCompletion      = errors.New("model returned an empty completion")
	ErrMalformedOutput      = errors.New("model output is not valid JSON")
	ErrInvalidStructure     = errors.New("model output is valid JSON but not a program payload")
	ErrUnknownExerciseIDs   = errors.New("model output references exercises outside the synced catalog")
	ErrRoutineIndexRange    = errors.New("routine index out of range")
)

// GenerationMetadata is the request echo returned alongside a fresh result.
type GenerationMetadata struct {
	Model           string                 `json:"model"`
	Attempts        int                    `json:"attempts"`
	DurationWeeks   int                    `json:"durationWeeks"`
	WorkoutsPerWeek int                    `json:"workoutsPerWeek"`
	FocusArea       string                 `json:"focusArea,omitempty"`
	ProgressionType domain.ProgressionType `json:"progressionType"`
	CatalogSize     int                    `json:"catalogSize"`
	RoutineCount    int                    `json:"routineCount"`
}

// GenerationOutcome bundles the persisted result with its metadata.
type GenerationOutcome struct {
	Routine  *domain.GeneratedRoutine `json:"routine"`
	Metadata GenerationMetadata       `json:"metadata"`
}

// ExportOutcome reports one confirmed export to Hevy.
type ExportOutcome struct {
	HevyRoutineID string    `json:"hevyRoutineId"`
	Title         string    `json:"title"`
	RoutineIndex  int       `json:"routineIndex"`
	ExportedAt    time.Time `json:"exportedAt"`
}

// GenerationService produces training programs from the user's training
// context via the model, persists them, and exports them back to Hevy.
type GenerationService interface {
	Generate(ctx context.Context, userID primitive.ObjectID, req domain.GenerationRequest) (*GenerationOutcome, error)
	GetGenerated(ctx context.Context, userID, routineID primitive.ObjectID) (*domain.GeneratedRoutine, error)
	ListGenerated(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.GeneratedRoutine, error)
	// ExportRoutine pushes one program of a stored result to Hevy. Each
	// program index exports at most once.
	ExportRoutine(ctx context.Context, userID, routineID primitive.ObjectID, index int) (*ExportOutcome, error)
	// WeeklyVariants derives the week-by-week progression of one stored
	// program, with a deload week appended.
	WeeklyVariants(ctx context.Context, userID, routineID primitive.ObjectID, index int) ([]domain.GeneratedProgram, error)
}

type generationService struct {
	generator      ai.Generator
	contextBuilder ContextBuilder
	generatedRepo  repository.GeneratedRoutineRepository
	errorLogRepo   repository.ErrorLogRepository
	hevyClient     hevy.API
	artifacts      storage.ArtifactStore

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewGenerationService creates a new GenerationService. artifacts may be nil
// when object storage is not configured; failed-output archiving is then
// skipped.
func NewGenerationService(
	generator ai.Generator,
	contextBuilder ContextBuilder,
	generatedRepo repository.GeneratedRoutineRepository,
	errorLogRepo repository.ErrorLogRepository,
	hevyClient hevy.API,
	artifacts storage.ArtifactStore,
) GenerationService {
	return &generationService{
		generator:      generator,
		contextBuilder: contextBuilder,
		generatedRepo:  generatedRepo,
		errorLogRepo:   errorLogRepo,
		hevyClient:     hevyClient,
		artifacts:      artifacts,
		now:            time.Now,
		sleep:          sleepContext,
	}
}

func (s *generationService) Generate(ctx context.Context, userID primitive.ObjectID, req domain.GenerationRequest) (*GenerationOutcome, error) {
	// Validate before touching the model or the database.
	normalized, err := normalizeGenerationRequest(req)
	if err != nil {
		return nil, err
	}

	tc, err := s.contextBuilder.BuildTrainingContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tc.AvailableExercises == 0 {
		return nil, ErrNoExercisesSynced
	}

	prompt := buildGenerationPrompt(tc, normalized)
	idSet := tc.ExerciseIDSet()

	var (
		programs           []domain.GeneratedProgram
		reasoning          string
		periodizationNotes string
		attempts           int
		lastErr            error
	)

	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		attempts = attempt
		if attempt > 1 {
			// Linear backoff, one extra second per attempt already burned.
			s.sleep(ctx, time.Duration(attempt-1)*time.Second)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}

		completion, err := s.generator.Generate(ctx, ai.GenerateRequest{
			System: generationSystemPrompt,
			Prompt: prompt,
			Seed:   attempt,
		})
		if err != nil {
			lastErr = fmt.Errorf("model call: %w", err)
			log.Printf("WARN: generation attempt %d/%d for user %s: %v", attempt, maxGenerationAttempts, userID.Hex(), err)
			continue
		}

		payload, err := s.parseCompletion(ctx, userID, attempt, completion)
		if err != nil {
			lastErr = err
			log.Printf("WARN: generation attempt %d/%d for user %s: %v", attempt, maxGenerationAttempts, userID.Hex(), err)
			continue
		}

		candidate := programsFromPayload(payload)
		if valid, invalid := validatePayloadExerciseIDs(candidate, idSet); !valid {
			lastErr = fmt.Errorf("%w: %s", ErrUnknownExerciseIDs, strings.Join(invalid, ", "))
			log.Printf("WARN: generation attempt %d/%d for user %s: %v", attempt, maxGenerationAttempts, userID.Hex(), lastErr)
			continue
		}

		programs = candidate
		reasoning = payload.Reasoning
		periodizationNotes = payload.PeriodizationNotes
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
	}

	result := &domain.GeneratedRoutine{
		UserID:   userID,
		Programs: programs,
		Context: domain.GenerationContext{
			Model:              s.generator.Model(),
			Prompt:             prompt,
			Reasoning:          reasoning,
			PeriodizationNotes: periodizationNotes,
			TrainingContext:    tc,
			Request:            normalized,
			Attempts:           attempts,
		},
		CreatedAt: s.now(),
	}
	id, err := s.generatedRepo.Create(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("persist generated routine: %w", err)
	}
	result.ID = id

	return &GenerationOutcome{
		Routine: result,
		Metadata: GenerationMetadata{
			Model:           s.generator.Model(),
			Attempts:        attempts,
			DurationWeeks:   normalized.DurationWeeks,
			WorkoutsPerWeek: normalized.WorkoutsPerWeek,
			FocusArea:       normalized.FocusArea,
			ProgressionType: normalized.ProgressionType,
			CatalogSize:     tc.AvailableExercises,
			RoutineCount:    len(programs),
		},
	}, nil
}

// parseCompletion turns raw model output into a structured payload. It tries
// the extracted JSON first, then a repaired version. A completion that fails
// both is archived for triage before the typed error is returned.
func (s *generationService) parseCompletion(ctx context.Context, userID primitive.ObjectID, attempt int, completion string) (*modelPayload, error) {
	if strings.TrimSpace(completion) == "" {
		return nil, ErrEmptyCompletion
	}

	extracted := ai.ExtractJSON(completion)

	var payload modelPayload
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		repaired := ai.RepairJSON(extracted)
		if repairErr := json.Unmarshal([]byte(repaired), &payload); repairErr != nil {
			s.archiveFailedCompletion(ctx, userID, attempt, completion, repairErr)
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, repairErr)
		}
	}

	if err := validatePayloadStructure(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// archiveFailedCompletion stores the raw output in object storage and writes
// an error log row. Best effort on both: archiving failures never fail the
// attempt loop.
func (s *generationService) archiveFailedCompletion(ctx context.Context, userID primitive.ObjectID, attempt int, completion string, parseErr error) {
	artifactKey := ""
	if s.artifacts != nil {
		artifactKey = fmt.Sprintf("generation-failures/%s/%s.txt", userID.Hex(), uuid.NewString())
		if err := s.artifacts.Put(ctx, artifactKey, "text/plain; charset=utf-8", []byte(completion)); err != nil {
			log.Printf("WARN: failed to archive unparsable completion for user %s: %v", userID.Hex(), err)
			artifactKey = ""
		}
	}

	logContext := map[string]any{
		"attempt": attempt,
		"model":   s.generator.Model(),
	}
	if artifactKey == "" {
		// No archive to point at, so keep an inline excerpt of the raw
		// output or the failure cannot be triaged at all.
		logContext["completionExcerpt"] = truncateForLog(completion)
	}

	entry := &domain.ErrorLog{
		UserID:      userID,
		Type:        domain.ErrorLogGenerationParse,
		Message:     parseErr.Error(),
		Context:     logContext,
		ArtifactKey: artifactKey,
		CreatedAt:   s.now(),
	}
	if _, err := s.errorLogRepo.Create(ctx, entry); err != nil {
		log.Printf("WARN: failed to record parse failure for user %s: %v", userID.Hex(), err)
	}
}

const completionExcerptLimit = 2000

func truncateForLog(s string) string {
	if len(s) <= completionExcerptLimit {
		return s
	}
	return s[:completionExcerptLimit] + "..."
}

func (s *generationService) GetGenerated(ctx context.Context, userID, routineID primitive.ObjectID) (*domain.GeneratedRoutine, error) {
	gr, err := s.generatedRepo.GetByID(ctx, routineID)
	if err != nil {
		return nil, err
	}
	if gr.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return gr, nil
}

func (s *generationService) ListGenerated(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.GeneratedRoutine, error) {
	return s.generatedRepo.ListByUser(ctx, userID, limit)
}

func (s *generationService) ExportRoutine(ctx context.Context, userID, routineID primitive.ObjectID, index int) (*ExportOutcome, error) {
	gr, err := s.GetGenerated(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(gr.Programs) {
		return nil, fmt.Errorf("%w: %d of %d programs", ErrRoutineIndexRange, index, len(gr.Programs))
	}
	if gr.ExportFor(index) != nil {
		return nil, repository.ErrAlreadyExported
	}

	program := gr.Programs[index]
	created, err := s.hevyClient.CreateRoutine(ctx, ToHevyRoutineRequest(program))
	if err != nil {
		return nil, fmt.Errorf("create hevy routine: %w", err)
	}

	// The routine now exists in Hevy either way. A record failure (including
	// a lost race on the same index) must not hide that from the caller.
	if err := s.generatedRepo.MarkExported(ctx, routineID, index, created.ID); err != nil {
		log.Printf("WARN: routine %s exported to hevy as %s but export record failed: %v", routineID.Hex(), created.ID, err)
	}

	return &ExportOutcome{
		HevyRoutineID: created.ID,
		Title:         created.Title,
		RoutineIndex:  index,
		ExportedAt:    s.now(),
	}, nil
}

func (s *generationService) WeeklyVariants(ctx context.Context, userID, routineID primitive.ObjectID, index int) ([]domain.GeneratedProgram, error) {
	gr, err := s.GetGenerated(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(gr.Programs) {
		return nil, fmt.Errorf("%w: %d of %d programs", ErrRoutineIndexRange, index, len(gr.Programs))
	}

	base := gr.Programs[index]
	weeks := gr.Context.Request.DurationWeeks
	if weeks < 1 {
		weeks = 1
	}
	progression := gr.Context.Request.ProgressionType

	variants := make([]domain.GeneratedProgram, 0, weeks+1)
	for week := 1; week <= weeks; week++ {
		variants = append(variants, ApplyProgressiveOverload(base, week, progression))
	}
	variants = append(variants, CreateDeloadRoutine(base))
	return variants, nil
}

// GenerationFailureMessage maps a generation error to a message safe to show
// the end user, or "" when the error is not a known generation failure.
func GenerationFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCompletion):
		return "The model returned an empty response. Please try again."
	case errors.Is(err, ErrMalformedOutput):
		return "The model returned output that could not be understood. Please try again."
	case errors.Is(err, ErrInvalidStructure):
		return "The model returned an unexpected program structure. Please try again."
	case errors.Is(err, ErrUnknownExerciseIDs):
		return "The generated program referenced exercises not in your synced library. Please try again."
	case errors.Is(err, ErrNoExercisesSynced):
		return "No exercises synced yet. Run a sync before generating a program."
	default:
		return ""
	}
}

// normalizeGenerationRequest validates bounds and applies defaults.
func normalizeGenerationRequest(req domain.GenerationRequest) (domain.GenerationRequest, error) {
	if req.WorkoutsPerWeek < 1 || req.WorkoutsPerWeek > 7 {
		return req, fmt.Errorf("%w: workoutsPerWeek must be between 1 and 7", ErrGenerationValidation)
	}
	if req.SessionDurationMins < 30 || req.SessionDurationMins > 180 {
		return req, fmt.Errorf("%w: sessionDurationMins must be between 30 and 180", ErrGenerationValidation)
	}
	if req.DurationWeeks < 1 || req.DurationWeeks > 12 {
		return req, fmt.Errorf("%w: durationWeeks must be between 1 and 12", ErrGenerationValidation)
	}
	switch req.ProgressionType {
	case "":
		req.ProgressionType = domain.ProgressionLinear
	case domain.ProgressionLinear, domain.ProgressionUndulating, domain.ProgressionBlock:
	default:
		return req, fmt.Errorf("%w: unknown progression type %q", ErrGenerationValidation, req.ProgressionType)
	}
	return req, nil
}

// Model payload schema. Field names follow the JSON contract stated in the
// prompt, which mirrors the Hevy API naming.

type modelPayload struct {
	Routines           []modelRoutine `json:"routines"`
	Reasoning          string         `json:"reasoning"`
	PeriodizationNotes string         `json:"periodization_notes"`
}

type modelRoutine struct {
	Title     string          `json:"title"`
	Notes     string          `json:"notes"`
	Exercises []modelExercise `json:"exercises"`
}

type modelExercise struct {
	ExerciseTemplateID string     `json:"exercise_template_id"`
	SupersetID         *int       `json:"superset_id"`
	RestSeconds        *int       `json:"rest_seconds"`
	Notes              string     `json:"notes"`
	Sets               []modelSet `json:"sets"`
}

type modelSet struct {
	Type     string           `json:"type"`
	WeightKg *float64         `json:"weight_kg"`
	Reps     *int             `json:"reps"`
	RepRange *domain.RepRange `json:"rep_range"`
}

func validatePayloadStructure(payload *modelPayload) error {
	if len(payload.Routines) == 0 {
		return fmt.Errorf("%w: no routines", ErrInvalidStructure)
	}
	for i, routine := range payload.Routines {
		if strings.TrimSpace(routine.Title) == "" {
			return fmt.Errorf("%w: routine %d has no title", ErrInvalidStructure, i)
		}
		if len(routine.Exercises) == 0 {
			return fmt.Errorf("%w: routine %q has no exercises", ErrInvalidStructure, routine.Title)
		}
		for j, ex := range routine.Exercises {
			if strings.TrimSpace(ex.ExerciseTemplateID) == "" {
				return fmt.Errorf("%w: routine %q exercise %d has no exercise_template_id", ErrInvalidStructure, routine.Title, j)
			}
			if len(ex.Sets) == 0 {
				return fmt.Errorf("%w: routine %q exercise %s has no sets", ErrInvalidStructure, routine.Title, ex.ExerciseTemplateID)
			}
		}
	}
	return nil
}

func programsFromPayload(payload *modelPayload) []domain.GeneratedProgram {
	programs := make([]domain.GeneratedProgram, 0, len(payload.Routines))
	for _, routine := range payload.Routines {
		program := domain.GeneratedProgram{
			Title:     routine.Title,
			Notes:     routine.Notes,
			Exercises: make([]domain.RoutineExercise, 0, len(routine.Exercises)),
		}
		for _, ex := range routine.Exercises {
			converted := domain.RoutineExercise{
				ExerciseTemplateID: ex.ExerciseTemplateID,
				SupersetID:         ex.SupersetID,
				RestSeconds:        ex.RestSeconds,
				Notes:              ex.Notes,
				Sets:               make([]domain.ExerciseSet, 0, len(ex.Sets)),
			}
			for _, set := range ex.Sets {
				setType := domain.SetType(set.Type)
				switch setType {
				case domain.SetTypeNormal, domain.SetTypeWarmup, domain.SetTypeFailure, domain.SetTypeDropset:
				default:
					setType = domain.SetTypeNormal
				}
				converted.Sets = append(converted.Sets, domain.ExerciseSet{
					Type:     setType,
					WeightKg: set.WeightKg,
					Reps:     set.Reps,
					RepRange: set.RepRange,
				})
			}
			program.Exercises = append(program.Exercises, converted)
		}
		programs = append(programs, program)
	}
	return programs
}

func validatePayloadExerciseIDs(programs []domain.GeneratedProgram, available map[string]struct{}) (bool, []string) {
	var invalid []string
	seen := make(map[string]struct{})
	for _, program := range programs {
		_, bad := ValidateExerciseIDs(program, available)
		for _, id := range bad {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			invalid = append(invalid, id)
		}
	}
	return len(invalid) == 0, invalid
}

const generationSystemPrompt = `You are an expert strength and conditioning coach. ` +
	`You design training programs strictly from the exercise catalog you are given. ` +
	`You respond with a single JSON object and nothing else.`

// buildGenerationPrompt renders the training context and request into the
// model prompt. The catalog section lists only synced exercise ids so the
// model cannot invent ones the export step would reject.
func buildGenerationPrompt(tc *domain.TrainingContext, req domain.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("Design a weekly training program for the following athlete.\n\n")

	b.WriteString("## Athlete profile\n")
	fmt.Fprintf(&b, "- Experience level: %s\n", tc.Profile.ExperienceLevel)
	if tc.Profile.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", tc.Profile.Age)
	}
	if tc.Profile.BodyWeightKg > 0 {
		fmt.Fprintf(&b, "- Body weight: %.1f kg\n", tc.Profile.BodyWeightKg)
	}
	if len(tc.Profile.FocusAreas) > 0 {
		fmt.Fprintf(&b, "- Focus areas: %s\n", strings.Join(tc.Profile.FocusAreas, ", "))
	}
	if len(tc.Profile.Injuries) > 0 {
		fmt.Fprintf(&b, "- Injuries to work around: %s\n", strings.Join(tc.Profile.Injuries, ", "))
		if tc.Profile.InjuryDetails != "" {
			fmt.Fprintf(&b, "- Injury details: %s\n", tc.Profile.InjuryDetails)
		}
	}
	if tc.Profile.OtherActivities != "" {
		fmt.Fprintf(&b, "- Other activities: %s\n", tc.Profile.OtherActivities)
	}

	b.WriteString("\n## Recent training\n")
	if len(tc.RecentWorkouts) == 0 {
		b.WriteString("No workout history synced yet.\n")
	} else {
		fmt.Fprintf(&b, "- Workouts in the last 8 weeks: %d\n", len(tc.RecentWorkouts))
		fmt.Fprintf(&b, "- Volume trend: %s, intensity trend: %s\n", tc.VolumeTrend, tc.IntensityTrend)
		for _, wv := range tc.WeeklyVolumes {
			fmt.Fprintf(&b, "- %d weeks ago: %d workouts, %.0f kg total volume\n", wv.WeeksAgo, wv.WorkoutCount, wv.TotalVolumeKg)
		}
		if len(tc.MuscleGroupFrequency) > 0 {
			muscles := make([]string, 0, len(tc.MuscleGroupFrequency))
			for muscle := range tc.MuscleGroupFrequency {
				muscles = append(muscles, muscle)
			}
			sort.Strings(muscles)
			parts := make([]string, 0, len(muscles))
			for _, muscle := range muscles {
				parts = append(parts, fmt.Sprintf("%s x%d", muscle, tc.MuscleGroupFrequency[muscle]))
			}
			fmt.Fprintf(&b, "- Muscle groups trained: %s\n", strings.Join(parts, ", "))
		}
	}

	b.WriteString("\n## Request\n")
	fmt.Fprintf(&b, "- Workouts per week: %d\n", req.WorkoutsPerWeek)
	fmt.Fprintf(&b, "- Session duration: about %d minutes\n", req.SessionDurationMins)
	fmt.Fprintf(&b, "- Program length: %d weeks with %s progression\n", req.DurationWeeks, req.ProgressionType)
	if req.FocusArea != "" {
		fmt.Fprintf(&b, "- Focus: %s\n", req.FocusArea)
	}
	if req.SplitType != "" {
		fmt.Fprintf(&b, "- Preferred split: %s\n", req.SplitType)
	}
	if req.SpecialInstructions != "" {
		fmt.Fprintf(&b, "- Special instructions: %s\n", req.SpecialInstructions)
	}

	b.WriteString("\n## Available exercises\n")
	b.WriteString("Use ONLY exercise_template_id values from this catalog.\n")
	muscles := make([]string, 0, len(tc.ExercisesByMuscle))
	for muscle := range tc.ExercisesByMuscle {
		muscles = append(muscles, muscle)
	}
	sort.Strings(muscles)
	for _, muscle := range muscles {
		fmt.Fprintf(&b, "### %s\n", muscle)
		for _, ex := range tc.ExercisesByMuscle[muscle] {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", ex.ExternalID, ex.Title, ex.Equipment)
		}
	}

	b.WriteString("\n## Output format\n")
	b.WriteString(`Respond with one JSON object:
{
  "routines": [
    {
      "title": "Day 1 - ...",
      "notes": "...",
      "exercises": [
        {
          "exercise_template_id": "<id from the catalog>",
          "superset_id": null,
          "rest_seconds": 90,
          "notes": "",
          "sets": [
            {"type": "normal", "weight_kg": 60.0, "reps": 8, "rep_range": {"start": 6, "end": 10}}
          ]
        }
      ]
    }
  ],
  "reasoning": "why this program fits the athlete",
  "periodization_notes": "how to progress it week over week"
}
`)
	fmt.Fprintf(&b, "Produce exactly %d routines, one per training day.\n", req.WorkoutsPerWeek)
	b.WriteString("Set weight_kg to null for bodyweight movements. Set type is one of normal, warmup, failure, dropset.\n")

	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
