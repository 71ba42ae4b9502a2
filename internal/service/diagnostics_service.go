package service

import (
	"context"
	"log"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"
	"fitforge/coach-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// How long a presigned artifact download link stays valid.
const artifactURLTTL = 15 * time.Minute

// ErrorLogEntry is a diagnostic record decorated with a temporary download
// URL for its archived artifact, when one exists.
type ErrorLogEntry struct {
	domain.ErrorLog
	ArtifactURL string `json:"artifactUrl,omitempty"`
}

// DiagnosticsService exposes the error-log triage surface: listing unresolved
// records with downloadable artifacts and marking them handled.
type DiagnosticsService interface {
	UnresolvedErrors(ctx context.Context, limit int64) ([]ErrorLogEntry, error)
	// ResolveError marks the record handled and deletes its archived
	// artifact. Returns repository.ErrNotFound for unknown ids.
	ResolveError(ctx context.Context, id primitive.ObjectID) (*domain.ErrorLog, error)
}

type diagnosticsService struct {
	errorLogRepo repository.ErrorLogRepository
	artifacts    storage.ArtifactStore // may be nil
}

// NewDiagnosticsService creates a new DiagnosticsService. The artifact store
// is optional; without it entries are served without download URLs.
func NewDiagnosticsService(errorLogRepo repository.ErrorLogRepository, artifacts storage.ArtifactStore) DiagnosticsService {
	return &diagnosticsService{
		errorLogRepo: errorLogRepo,
		artifacts:    artifacts,
	}
}

func (s *diagnosticsService) UnresolvedErrors(ctx context.Context, limit int64) ([]ErrorLogEntry, error) {
	logs, err := s.errorLogRepo.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]ErrorLogEntry, 0, len(logs))
	for _, entry := range logs {
		decorated := ErrorLogEntry{ErrorLog: entry}
		if entry.ArtifactKey != "" && s.artifacts != nil {
			url, err := s.artifacts.GeneratePresignedDownloadURL(ctx, entry.ArtifactKey, artifactURLTTL)
			if err != nil {
				log.Printf("WARN: failed to presign artifact %s: %v", entry.ArtifactKey, err)
			} else {
				decorated.ArtifactURL = url
			}
		}
		entries = append(entries, decorated)
	}
	return entries, nil
}

func (s *diagnosticsService) ResolveError(ctx context.Context, id primitive.ObjectID) (*domain.ErrorLog, error) {
	entry, err := s.errorLogRepo.MarkResolved(ctx, id)
	if err != nil {
		return nil, err
	}

	// The record is resolved either way; a leaked artifact only costs storage.
	if entry.ArtifactKey != "" && s.artifacts != nil {
		if err := s.artifacts.DeleteObject(ctx, entry.ArtifactKey); err != nil {
			log.Printf("WARN: failed to delete artifact %s: %v", entry.ArtifactKey, err)
		}
	}
	return entry, nil
}
