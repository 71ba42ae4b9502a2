package hevy

import "time"

// Payload models mirror the Hevy public API JSON.

// ExerciseTemplate is one entry of the exercise template library.
type ExerciseTemplate struct {
	ID                    string   `json:"id"`
	Title                 string   `json:"title"`
	Type                  string   `json:"type,omitempty"`
	PrimaryMuscleGroup    string   `json:"primary_muscle_group"`
	SecondaryMuscleGroups []string `json:"secondary_muscle_groups,omitempty"`
	Equipment             string   `json:"equipment"`
	IsCustom              bool     `json:"is_custom"`
}

// RoutineFolder groups routines in the Hevy app.
type RoutineFolder struct {
	ID    int64  `json:"id"`
	Index int    `json:"index"`
	Title string `json:"title"`
}

// Set is one set of an exercise in a workout or routine.
type Set struct {
	Index           int       `json:"index,omitempty"`
	Type            string    `json:"type"`
	WeightKg        *float64  `json:"weight_kg"`
	Reps            *int      `json:"reps"`
	DistanceMeters  *float64  `json:"distance_meters,omitempty"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	RPE             *float64  `json:"rpe,omitempty"`
	RepRange        *RepRange `json:"rep_range,omitempty"`
}

// RepRange is an inclusive target repetition window on a routine set.
type RepRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Exercise is one ordered exercise within a workout or routine.
type Exercise struct {
	Index              int    `json:"index,omitempty"`
	Title              string `json:"title,omitempty"`
	Notes              string `json:"notes,omitempty"`
	ExerciseTemplateID string `json:"exercise_template_id"`
	SupersetID         *int   `json:"superset_id"`
	RestSeconds        *int   `json:"rest_seconds,omitempty"`
	Sets               []Set  `json:"sets"`
}

// Workout is one completed training session.
type Workout struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Exercises   []Exercise `json:"exercises"`
}

// Routine is a stored routine template.
type Routine struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	FolderID  *int64     `json:"folder_id"`
	Exercises []Exercise `json:"exercises"`
}

// Paged list responses. Each list endpoint reports the page it returned and
// the total page count.

type WorkoutsPage struct {
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
	Workouts  []Workout `json:"workouts"`
}

type WorkoutCountResponse struct {
	WorkoutCount int `json:"workout_count"`
}

// WorkoutEvent is one entry of the "events since timestamp" feed used by
// incremental sync. Type is "updated" (payload in Workout) or "deleted"
// (payload in ID/DeletedAt).
type WorkoutEvent struct {
	Type      string    `json:"type"`
	Workout   *Workout  `json:"workout,omitempty"`
	ID        string    `json:"id,omitempty"`
	DeletedAt time.Time `json:"deleted_at,omitempty"`
}

type WorkoutEventsPage struct {
	Page      int            `json:"page"`
	PageCount int            `json:"page_count"`
	Events    []WorkoutEvent `json:"events"`
}

type RoutinesPage struct {
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
	Routines  []Routine `json:"routines"`
}

type RoutineFoldersPage struct {
	Page           int             `json:"page"`
	PageCount      int             `json:"page_count"`
	RoutineFolders []RoutineFolder `json:"routine_folders"`
}

type ExerciseTemplatesPage struct {
	Page              int                `json:"page"`
	PageCount         int                `json:"page_count"`
	ExerciseTemplates []ExerciseTemplate `json:"exercise_templates"`
}

// CreateRoutineRequest is the body of POST /v1/routines.
type CreateRoutineRequest struct {
	Routine CreateRoutine `json:"routine"`
}

// CreateRoutine is the creation schema of a routine. Optional fields that the
// API expects as explicit nulls are pointers.
type CreateRoutine struct {
	Title     string           `json:"title"`
	FolderID  *int64           `json:"folder_id"`
	Notes     string           `json:"notes"`
	Exercises []CreateExercise `json:"exercises"`
}

type CreateExercise struct {
	ExerciseTemplateID string      `json:"exercise_template_id"`
	SupersetID         *int        `json:"superset_id"`
	RestSeconds        *int        `json:"rest_seconds"`
	Notes              string      `json:"notes"`
	Sets               []CreateSet `json:"sets"`
}

type CreateSet struct {
	Type            string    `json:"type"`
	WeightKg        *float64  `json:"weight_kg"`
	Reps            *int      `json:"reps"`
	DistanceMeters  *float64  `json:"distance_meters"`
	DurationSeconds *int      `json:"duration_seconds"`
	CustomMetric    *float64  `json:"custom_metric"`
	RepRange        *RepRange `json:"rep_range,omitempty"`
}

// CreateRoutineResponse wraps the created routine returned by the API.
type CreateRoutineResponse struct {
	Routine Routine `json:"routine"`
}
