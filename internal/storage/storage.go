package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ArtifactStore defines the interface for archiving diagnostic artifacts
// (raw model output that failed to parse) in object storage.
type ArtifactStore interface {
	// Put uploads an artifact under the given key.
	Put(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for an archived artifact, for triage tooling.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an artifact.
	DeleteObject(ctx context.Context, objectKey string) error
}
