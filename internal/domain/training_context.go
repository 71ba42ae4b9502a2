package domain

import "time"

// TrendDirection classifies how volume or intensity has moved over the
// analysis window.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// ExerciseSummary is the per-exercise rollup inside one workout. Only sets of
// type "normal" with both weight and reps present count toward it.
type ExerciseSummary struct {
	ExerciseTemplateID string  `bson:"exerciseTemplateId" json:"exerciseTemplateId"`
	Title              string  `bson:"title" json:"title"`
	PrimaryMuscle      string  `bson:"primaryMuscle,omitempty" json:"primaryMuscle,omitempty"`
	TotalVolumeKg      float64 `bson:"totalVolumeKg" json:"totalVolumeKg"`
	MaxWeightKg        float64 `bson:"maxWeightKg" json:"maxWeightKg"`
	SetCount           int     `bson:"setCount" json:"setCount"`
	AvgReps            float64 `bson:"avgReps" json:"avgReps"`
}

// WorkoutSummary aggregates one imported workout for analysis.
type WorkoutSummary struct {
	ExternalID    string            `bson:"externalId" json:"externalId"`
	Title         string            `bson:"title" json:"title"`
	PerformedAt   time.Time         `bson:"performedAt" json:"performedAt"`
	TotalVolumeKg float64           `bson:"totalVolumeKg" json:"totalVolumeKg"`
	MaxWeightKg   float64           `bson:"maxWeightKg" json:"maxWeightKg"`
	MuscleGroups  []string          `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	Exercises     []ExerciseSummary `bson:"exercises,omitempty" json:"exercises,omitempty"`
}

// WeeklyVolume is one bucket of the trailing volume series. WeeksAgo 0 is the
// current week; weeks with no training appear with zero volume.
type WeeklyVolume struct {
	WeeksAgo      int     `bson:"weeksAgo" json:"weeksAgo"`
	TotalVolumeKg float64 `bson:"totalVolumeKg" json:"totalVolumeKg"`
	WorkoutCount  int     `bson:"workoutCount" json:"workoutCount"`
}

// CatalogExercise is one entry of the available-exercise catalog handed to
// the model.
type CatalogExercise struct {
	ExternalID    string `bson:"externalId" json:"externalId"`
	Title         string `bson:"title" json:"title"`
	PrimaryMuscle string `bson:"primaryMuscle" json:"primaryMuscle"`
	Equipment     string `bson:"equipment" json:"equipment"`
}

// TrainingContext is the full analysis snapshot the generation prompt is
// built from. It is stored verbatim inside the GeneratedRoutine for audit.
type TrainingContext struct {
	Profile              UserProfile                  `bson:"profile" json:"profile"`
	RecentWorkouts       []WorkoutSummary             `bson:"recentWorkouts,omitempty" json:"recentWorkouts,omitempty"`
	WeeklyVolumes        []WeeklyVolume               `bson:"weeklyVolumes" json:"weeklyVolumes"`
	DayOfWeekFrequency   map[string]int               `bson:"dayOfWeekFrequency,omitempty" json:"dayOfWeekFrequency,omitempty"`
	MuscleGroupFrequency map[string]int               `bson:"muscleGroupFrequency,omitempty" json:"muscleGroupFrequency,omitempty"`
	VolumeTrend          TrendDirection               `bson:"volumeTrend" json:"volumeTrend"`
	IntensityTrend       TrendDirection               `bson:"intensityTrend" json:"intensityTrend"`
	ExercisesByMuscle    map[string][]CatalogExercise `bson:"exercisesByMuscle,omitempty" json:"exercisesByMuscle,omitempty"`
	ExercisesByEquipment map[string][]CatalogExercise `bson:"exercisesByEquipment,omitempty" json:"exercisesByEquipment,omitempty"`
	AvailableExercises   int                          `bson:"availableExercises" json:"availableExercises"`
}

// ExerciseIDSet returns the set of external exercise ids present in the
// catalog, used to validate model output.
func (tc *TrainingContext) ExerciseIDSet() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, group := range tc.ExercisesByMuscle {
		for _, ex := range group {
			ids[ex.ExternalID] = struct{}{}
		}
	}
	return ids
}
