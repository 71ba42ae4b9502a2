package service

import (
	"context"
	"testing"
	"time"

	"fitforge/coach-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testTemplate(externalID, title, muscle, equipment string) domain.ImportedExerciseTemplate {
	return domain.ImportedExerciseTemplate{
		ExternalID:    externalID,
		Title:         title,
		PrimaryMuscle: muscle,
		Equipment:     equipment,
	}
}

func testWorkout(externalID string, startTime time.Time, exercises ...domain.RoutineExercise) domain.ImportedWorkout {
	return domain.ImportedWorkout{
		ExternalID: externalID,
		Title:      "Workout " + externalID,
		StartTime:  startTime,
		EndTime:    startTime.Add(time.Hour),
		Exercises:  exercises,
	}
}

func newTestContextBuilder(userID primitive.ObjectID, now time.Time) (*contextBuilder, *fakeTemplateRepo, *fakeWorkoutRepo) {
	profileRepo := &fakeProfileRepo{profile: &domain.UserProfile{
		UserID:          userID,
		ExperienceLevel: domain.ExperienceIntermediate,
		WeeklyFrequency: 4,
	}}
	templateRepo := newFakeTemplateRepo()
	workoutRepo := newFakeWorkoutRepo()

	builder := NewContextBuilder(profileRepo, workoutRepo, templateRepo).(*contextBuilder)
	builder.now = func() time.Time { return now }
	return builder, templateRepo, workoutRepo
}

func TestBuildTrainingContext_EmptyHistory(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	builder, _, _ := newTestContextBuilder(userID, now)

	tc, err := builder.BuildTrainingContext(context.Background(), userID)
	require.NoError(t, err)

	assert.Empty(t, tc.RecentWorkouts)
	assert.Equal(t, 0, tc.AvailableExercises)
	assert.Equal(t, domain.TrendStable, tc.VolumeTrend)
	assert.Equal(t, domain.TrendStable, tc.IntensityTrend)

	// The weekly series is always fully zero-filled.
	require.Len(t, tc.WeeklyVolumes, 8)
	for i, wv := range tc.WeeklyVolumes {
		assert.Equal(t, i, wv.WeeksAgo)
		assert.Zero(t, wv.TotalVolumeKg)
		assert.Zero(t, wv.WorkoutCount)
	}
}

func TestBuildTrainingContext_VolumeAndCatalog(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	builder, templateRepo, workoutRepo := newTestContextBuilder(userID, now)

	templateRepo.templates["bench"] = testTemplate("bench", "Bench Press", "chest", "barbell")
	templateRepo.templates["row"] = testTemplate("row", "Barbell Row", "upper_back", "barbell")
	// Missing equipment: dropped from the catalog and from muscle tagging.
	templateRepo.templates["mystery"] = testTemplate("mystery", "Mystery Machine", "legs", "")

	w := testWorkout("w1", now.AddDate(0, 0, -2), domain.RoutineExercise{
		ExerciseTemplateID: "bench",
		Title:              "Bench Press",
		Sets: []domain.ExerciseSet{
			{Type: domain.SetTypeWarmup, WeightKg: floatPtr(40), Reps: intPtr(10)}, // excluded
			{Type: domain.SetTypeNormal, WeightKg: floatPtr(80), Reps: intPtr(10)},
			{Type: domain.SetTypeNormal, WeightKg: floatPtr(90), Reps: intPtr(6)},
			{Type: domain.SetTypeNormal, Reps: intPtr(12)}, // no weight, excluded
		},
	})
	require.NoError(t, workoutRepo.Upsert(context.Background(), &w))

	tc, err := builder.BuildTrainingContext(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, tc.RecentWorkouts, 1)
	summary := tc.RecentWorkouts[0]
	// 80*10 + 90*6 = 1340; warmup and weightless sets do not count.
	assert.Equal(t, 1340.0, summary.TotalVolumeKg)
	assert.Equal(t, 90.0, summary.MaxWeightKg)
	assert.Equal(t, []string{"chest"}, summary.MuscleGroups)

	require.Len(t, summary.Exercises, 1)
	assert.Equal(t, 2, summary.Exercises[0].SetCount)
	assert.Equal(t, 8.0, summary.Exercises[0].AvgReps)

	// Incomplete template is dropped from the catalog.
	assert.Equal(t, 2, tc.AvailableExercises)
	assert.Contains(t, tc.ExercisesByMuscle, "chest")
	assert.NotContains(t, tc.ExercisesByMuscle, "legs")
	assert.Len(t, tc.ExercisesByEquipment["barbell"], 2)

	// This week's bucket carries the volume.
	assert.Equal(t, 1340.0, tc.WeeklyVolumes[0].TotalVolumeKg)
	assert.Equal(t, 1, tc.WeeklyVolumes[0].WorkoutCount)
	assert.Equal(t, 1, tc.DayOfWeekFrequency[now.AddDate(0, 0, -2).Weekday().String()])
	assert.Equal(t, 1, tc.MuscleGroupFrequency["chest"])
}

func TestBuildTrainingContext_NoProfile(t *testing.T) {
	userID := primitive.NewObjectID()
	builder := NewContextBuilder(&fakeProfileRepo{}, newFakeWorkoutRepo(), newFakeTemplateRepo())

	_, err := builder.BuildTrainingContext(context.Background(), userID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestClassifyTrends_SmallSampleIsStable(t *testing.T) {
	summaries := []domain.WorkoutSummary{
		{TotalVolumeKg: 1000, MaxWeightKg: 100},
		{TotalVolumeKg: 100, MaxWeightKg: 10},
		{TotalVolumeKg: 100, MaxWeightKg: 10},
	}
	volume, intensity := classifyTrends(summaries)
	assert.Equal(t, domain.TrendStable, volume)
	assert.Equal(t, domain.TrendStable, intensity)
}

func TestClassifyTrends_Directions(t *testing.T) {
	// Newest first: recent half averages twice the older half.
	summaries := []domain.WorkoutSummary{
		{TotalVolumeKg: 2000, MaxWeightKg: 100},
		{TotalVolumeKg: 2000, MaxWeightKg: 100},
		{TotalVolumeKg: 1000, MaxWeightKg: 100},
		{TotalVolumeKg: 1000, MaxWeightKg: 100},
	}
	volume, intensity := classifyTrends(summaries)
	assert.Equal(t, domain.TrendIncreasing, volume)
	assert.Equal(t, domain.TrendStable, intensity)

	// Recent max weights dropped well past the 5% band.
	summaries = []domain.WorkoutSummary{
		{TotalVolumeKg: 1000, MaxWeightKg: 80},
		{TotalVolumeKg: 1000, MaxWeightKg: 80},
		{TotalVolumeKg: 1000, MaxWeightKg: 100},
		{TotalVolumeKg: 1000, MaxWeightKg: 100},
	}
	volume, intensity = classifyTrends(summaries)
	assert.Equal(t, domain.TrendStable, volume)
	assert.Equal(t, domain.TrendDecreasing, intensity)
}

func TestClassifyRatio_ZeroBaseline(t *testing.T) {
	assert.Equal(t, domain.TrendStable, classifyRatio(500, 0, 0.10))
}

func TestWeeklyVolumeSeries_Buckets(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	summaries := []domain.WorkoutSummary{
		{PerformedAt: now.AddDate(0, 0, -1), TotalVolumeKg: 100},
		{PerformedAt: now.AddDate(0, 0, -8), TotalVolumeKg: 200},
		{PerformedAt: now.AddDate(0, 0, -9), TotalVolumeKg: 50},
		// Outside the 8-week window: ignored.
		{PerformedAt: now.AddDate(0, 0, -80), TotalVolumeKg: 999},
	}

	series := weeklyVolumeSeries(summaries, now)
	require.Len(t, series, 8)
	assert.Equal(t, 100.0, series[0].TotalVolumeKg)
	assert.Equal(t, 250.0, series[1].TotalVolumeKg)
	assert.Equal(t, 2, series[1].WorkoutCount)
	for i := 2; i < 8; i++ {
		assert.Zero(t, series[i].TotalVolumeKg)
	}
}
