package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// History window the analysis looks back over.
	historyWindowDays = 56
	// Number of weekly volume buckets reported.
	volumeWeeks = 8
	// Fewer workouts than this forces both trends to "stable"; half-split
	// means on tiny samples are noise.
	minWorkoutsForTrend = 4

	volumeTrendBand    = 0.10
	intensityTrendBand = 0.05
)

// ErrNoExercisesSynced is reported when generation is requested before any
// exercise templates have been synced; the model is never called with an
// empty catalog.
var ErrNoExercisesSynced = errors.New("no exercise templates synced yet, run an exercise sync first")

// ContextBuilder assembles the training context snapshot the generation
// prompt is built from.
type ContextBuilder interface {
	BuildTrainingContext(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingContext, error)
}

// contextBuilder implements the ContextBuilder interface.
type contextBuilder struct {
	profileRepo  repository.ProfileRepository
	workoutRepo  repository.WorkoutRepository
	templateRepo repository.ExerciseTemplateRepository
	now          func() time.Time
}

// NewContextBuilder creates a new instance of contextBuilder.
func NewContextBuilder(profileRepo repository.ProfileRepository, workoutRepo repository.WorkoutRepository, templateRepo repository.ExerciseTemplateRepository) ContextBuilder {
	return &contextBuilder{
		profileRepo:  profileRepo,
		workoutRepo:  workoutRepo,
		templateRepo: templateRepo,
		now:          time.Now,
	}
}

// BuildTrainingContext loads the profile and recent history and derives the
// rollup statistics and exercise catalog for prompt building.
func (b *contextBuilder) BuildTrainingContext(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingContext, error) {
	profile, err := b.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	now := b.now().UTC()
	cutoff := now.AddDate(0, 0, -historyWindowDays)
	workouts, err := b.workoutRepo.GetSince(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}

	templates, err := b.templateRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Templates with incomplete data are dropped from every downstream
	// computation without being flagged as an error.
	lookup := make(map[string]domain.ImportedExerciseTemplate)
	for _, tpl := range templates {
		if tpl.IsComplete() {
			lookup[tpl.ExternalID] = tpl
		}
	}

	summaries := make([]domain.WorkoutSummary, 0, len(workouts))
	for _, w := range workouts {
		summaries = append(summaries, summarizeWorkout(w, lookup))
	}

	tc := &domain.TrainingContext{
		Profile:              *profile,
		RecentWorkouts:       summaries,
		WeeklyVolumes:        weeklyVolumeSeries(summaries, now),
		DayOfWeekFrequency:   dayOfWeekHistogram(summaries),
		MuscleGroupFrequency: muscleGroupHistogram(summaries),
	}
	tc.VolumeTrend, tc.IntensityTrend = classifyTrends(summaries)

	tc.ExercisesByMuscle, tc.ExercisesByEquipment, tc.AvailableExercises = groupCatalog(lookup)
	return tc, nil
}

// summarizeWorkout reconstructs per-exercise rollups for one workout. Only
// sets of type "normal" with both weight and reps present count.
func summarizeWorkout(w domain.ImportedWorkout, templates map[string]domain.ImportedExerciseTemplate) domain.WorkoutSummary {
	summary := domain.WorkoutSummary{
		ExternalID:  w.ExternalID,
		Title:       w.Title,
		PerformedAt: w.StartTime,
	}

	muscles := make(map[string]struct{})
	for _, ex := range w.Exercises {
		es := domain.ExerciseSummary{
			ExerciseTemplateID: ex.ExerciseTemplateID,
			Title:              ex.Title,
		}
		if tpl, ok := templates[ex.ExerciseTemplateID]; ok {
			es.PrimaryMuscle = tpl.PrimaryMuscle
		}

		var repsTotal int
		for _, set := range ex.Sets {
			if set.Type != domain.SetTypeNormal || set.WeightKg == nil || set.Reps == nil {
				continue
			}
			es.SetCount++
			repsTotal += *set.Reps
			es.TotalVolumeKg += *set.WeightKg * float64(*set.Reps)
			if *set.WeightKg > es.MaxWeightKg {
				es.MaxWeightKg = *set.WeightKg
			}
		}
		if es.SetCount > 0 {
			es.AvgReps = float64(repsTotal) / float64(es.SetCount)
		}

		summary.TotalVolumeKg += es.TotalVolumeKg
		if es.MaxWeightKg > summary.MaxWeightKg {
			summary.MaxWeightKg = es.MaxWeightKg
		}
		if es.PrimaryMuscle != "" {
			muscles[es.PrimaryMuscle] = struct{}{}
		}
		summary.Exercises = append(summary.Exercises, es)
	}

	summary.MuscleGroups = make([]string, 0, len(muscles))
	for m := range muscles {
		summary.MuscleGroups = append(summary.MuscleGroups, m)
	}
	sort.Strings(summary.MuscleGroups)
	return summary
}

// weeklyVolumeSeries buckets total volume by integer "weeks ago" from now,
// zero-filling weeks with no training.
func weeklyVolumeSeries(summaries []domain.WorkoutSummary, now time.Time) []domain.WeeklyVolume {
	series := make([]domain.WeeklyVolume, volumeWeeks)
	for i := range series {
		series[i].WeeksAgo = i
	}
	for _, s := range summaries {
		weeksAgo := int(now.Sub(s.PerformedAt).Hours() / (24 * 7))
		if weeksAgo < 0 || weeksAgo >= volumeWeeks {
			continue
		}
		series[weeksAgo].TotalVolumeKg += s.TotalVolumeKg
		series[weeksAgo].WorkoutCount++
	}
	return series
}

func dayOfWeekHistogram(summaries []domain.WorkoutSummary) map[string]int {
	hist := make(map[string]int)
	for _, s := range summaries {
		hist[s.PerformedAt.Weekday().String()]++
	}
	return hist
}

// muscleGroupHistogram counts workouts touching each group, not set counts.
func muscleGroupHistogram(summaries []domain.WorkoutSummary) map[string]int {
	hist := make(map[string]int)
	for _, s := range summaries {
		for _, m := range s.MuscleGroups {
			hist[m]++
		}
	}
	return hist
}

// classifyTrends splits the newest-first workout list in half by recency and
// compares means: volume against a 10% band, intensity (max-weight proxy)
// against a 5% band.
func classifyTrends(summaries []domain.WorkoutSummary) (volume, intensity domain.TrendDirection) {
	if len(summaries) < minWorkoutsForTrend {
		return domain.TrendStable, domain.TrendStable
	}

	half := len(summaries) / 2
	recent, older := summaries[:half], summaries[half:]

	volume = classifyRatio(meanOf(recent, volumeOf), meanOf(older, volumeOf), volumeTrendBand)
	intensity = classifyRatio(meanOf(recent, maxWeightOf), meanOf(older, maxWeightOf), intensityTrendBand)
	return volume, intensity
}

func volumeOf(s domain.WorkoutSummary) float64    { return s.TotalVolumeKg }
func maxWeightOf(s domain.WorkoutSummary) float64 { return s.MaxWeightKg }

func meanOf(summaries []domain.WorkoutSummary, value func(domain.WorkoutSummary) float64) float64 {
	if len(summaries) == 0 {
		return 0
	}
	var total float64
	for _, s := range summaries {
		total += value(s)
	}
	return total / float64(len(summaries))
}

func classifyRatio(recent, older, band float64) domain.TrendDirection {
	if older == 0 {
		return domain.TrendStable
	}
	ratio := recent / older
	switch {
	case ratio > 1+band:
		return domain.TrendIncreasing
	case ratio < 1-band:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// groupCatalog groups valid templates by primary muscle and by equipment for
// prompt inclusion.
func groupCatalog(lookup map[string]domain.ImportedExerciseTemplate) (byMuscle, byEquipment map[string][]domain.CatalogExercise, total int) {
	byMuscle = make(map[string][]domain.CatalogExercise)
	byEquipment = make(map[string][]domain.CatalogExercise)

	ids := make([]string, 0, len(lookup))
	for id := range lookup {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		tpl := lookup[id]
		entry := domain.CatalogExercise{
			ExternalID:    tpl.ExternalID,
			Title:         tpl.Title,
			PrimaryMuscle: tpl.PrimaryMuscle,
			Equipment:     tpl.Equipment,
		}
		byMuscle[tpl.PrimaryMuscle] = append(byMuscle[tpl.PrimaryMuscle], entry)
		byEquipment[tpl.Equipment] = append(byEquipment[tpl.Equipment], entry)
		total++
	}
	return byMuscle, byEquipment, total
}
