package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressionType is the scheme governing week-over-week load changes.
type ProgressionType string

const (
	ProgressionLinear     ProgressionType = "linear"
	ProgressionUndulating ProgressionType = "undulating"
	ProgressionBlock      ProgressionType = "block"
)

// GenerationRequest echoes the parameters a generation was asked for.
type GenerationRequest struct {
	WorkoutsPerWeek     int             `bson:"workoutsPerWeek" json:"workoutsPerWeek"`
	SessionDurationMins int             `bson:"sessionDurationMins" json:"sessionDurationMins"`
	DurationWeeks       int             `bson:"durationWeeks" json:"durationWeeks"`
	FocusArea           string          `bson:"focusArea,omitempty" json:"focusArea,omitempty"`
	SplitType           string          `bson:"splitType,omitempty" json:"splitType,omitempty"`
	SpecialInstructions string          `bson:"specialInstructions,omitempty" json:"specialInstructions,omitempty"`
	ProgressionType     ProgressionType `bson:"progressionType" json:"progressionType"`
}

// GeneratedProgram is one routine produced by the model: a titled, ordered
// list of exercises.
type GeneratedProgram struct {
	Title     string            `bson:"title" json:"title"`
	Notes     string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Exercises []RoutineExercise `bson:"exercises" json:"exercises"`
}

// GenerationContext is the audit blob persisted alongside a generation
// result: the model used, the exact prompt, the model's own commentary and
// the training context snapshot the prompt was built from.
type GenerationContext struct {
	Model              string            `bson:"model" json:"model"`
	Prompt             string            `bson:"prompt" json:"prompt"`
	Reasoning          string            `bson:"reasoning,omitempty" json:"reasoning,omitempty"`
	PeriodizationNotes string            `bson:"periodizationNotes,omitempty" json:"periodizationNotes,omitempty"`
	TrainingContext    *TrainingContext  `bson:"trainingContext,omitempty" json:"trainingContext,omitempty"`
	Request            GenerationRequest `bson:"request" json:"request"`
	Attempts           int               `bson:"attempts" json:"attempts"`
}

// ExportRecord tracks one successful export of a generated program to Hevy.
// Each program index transitions to exported at most once.
type ExportRecord struct {
	RoutineIndex  int       `bson:"routineIndex" json:"routineIndex"`
	HevyRoutineID string    `bson:"hevyRoutineId" json:"hevyRoutineId"`
	ExportedAt    time.Time `bson:"exportedAt" json:"exportedAt"`
}

// GeneratedRoutine is one persisted generation result. Immutable after
// creation except for the Exports list, which grows by one entry per
// confirmed export.
type GeneratedRoutine struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Programs  []GeneratedProgram `bson:"programs" json:"programs"`
	Context   GenerationContext  `bson:"context" json:"context"`
	Exports   []ExportRecord     `bson:"exports,omitempty" json:"exports,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// ExportFor returns the export record for a program index, if one exists.
func (g *GeneratedRoutine) ExportFor(index int) *ExportRecord {
	for i := range g.Exports {
		if g.Exports[i].RoutineIndex == index {
			return &g.Exports[i]
		}
	}
	return nil
}
