package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrorLogType tags the kind of diagnostic record.
type ErrorLogType string

const (
	ErrorLogGenerationParse ErrorLogType = "generation_parse_failure"
)

// ErrorLog is a diagnostic record written when generation output cannot be
// parsed even after repair. The triage endpoints list unresolved records and
// mark them resolved. ArtifactKey points at the raw model output archived in
// object storage; when no archive was possible the context carries an inline
// excerpt instead.
type ErrorLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Type        ErrorLogType       `bson:"type" json:"type"`
	Message     string             `bson:"message" json:"message"`
	Context     map[string]any     `bson:"context,omitempty" json:"context,omitempty"`
	ArtifactKey string             `bson:"artifactKey,omitempty" json:"artifactKey,omitempty"`
	Resolved    bool               `bson:"resolved" json:"resolved"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
