package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExperienceLevel classifies how long a user has been training.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// UserProfile holds the training profile a user fills in after signing up.
// At most one profile exists per user (unique index on userId). A placeholder
// profile is created on registration and mutated by profile updates; no flow
// hard-deletes it.
type UserProfile struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Age               int                `bson:"age,omitempty" json:"age,omitempty"`
	BodyWeightKg      float64            `bson:"bodyWeightKg,omitempty" json:"bodyWeightKg,omitempty"`
	WeeklyFrequency   int                `bson:"weeklyFrequency,omitempty" json:"weeklyFrequency,omitempty"` // Preferred training days per week
	ExperienceLevel   ExperienceLevel    `bson:"experienceLevel" json:"experienceLevel"`
	FocusAreas        []string           `bson:"focusAreas,omitempty" json:"focusAreas,omitempty"`
	Injuries          []string           `bson:"injuries,omitempty" json:"injuries,omitempty"`
	InjuryDetails     string             `bson:"injuryDetails,omitempty" json:"injuryDetails,omitempty"`
	OtherActivities   string             `bson:"otherActivities,omitempty" json:"otherActivities,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
