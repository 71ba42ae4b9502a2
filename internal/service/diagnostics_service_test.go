package service

import (
	"context"
	"testing"
	"time"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedErrorLog(t *testing.T, repo *fakeErrorLogRepo, artifactKey string) primitive.ObjectID {
	t.Helper()
	id, err := repo.Create(context.Background(), &domain.ErrorLog{
		UserID:      primitive.NewObjectID(),
		Type:        domain.ErrorLogGenerationParse,
		Message:     "unexpected end of JSON input",
		ArtifactKey: artifactKey,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	return id
}

func TestUnresolvedErrors_AttachesArtifactURLs(t *testing.T) {
	repo := &fakeErrorLogRepo{}
	artifacts := newStubArtifactStore()
	svc := NewDiagnosticsService(repo, artifacts)

	withArtifact := seedErrorLog(t, repo, "generation-failures/u1/a.txt")
	withoutArtifact := seedErrorLog(t, repo, "")

	entries, err := svc.UnresolvedErrors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byID := make(map[primitive.ObjectID]ErrorLogEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}
	assert.Equal(t, "https://artifacts.test/generation-failures/u1/a.txt", byID[withArtifact].ArtifactURL)
	assert.Empty(t, byID[withoutArtifact].ArtifactURL)
}

func TestUnresolvedErrors_PresignFailureLeavesURLEmpty(t *testing.T) {
	repo := &fakeErrorLogRepo{}
	artifacts := newStubArtifactStore()
	artifacts.presignErr = assert.AnError
	svc := NewDiagnosticsService(repo, artifacts)

	seedErrorLog(t, repo, "generation-failures/u1/a.txt")

	entries, err := svc.UnresolvedErrors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ArtifactURL)
}

func TestUnresolvedErrors_WithoutArtifactStore(t *testing.T) {
	repo := &fakeErrorLogRepo{}
	svc := NewDiagnosticsService(repo, nil)

	seedErrorLog(t, repo, "generation-failures/u1/a.txt")

	entries, err := svc.UnresolvedErrors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ArtifactURL)
}

func TestResolveError(t *testing.T) {
	repo := &fakeErrorLogRepo{}
	artifacts := newStubArtifactStore()
	require.NoError(t, artifacts.Put(context.Background(), "generation-failures/u1/a.txt", "text/plain", []byte("raw")))
	svc := NewDiagnosticsService(repo, artifacts)

	id := seedErrorLog(t, repo, "generation-failures/u1/a.txt")

	entry, err := svc.ResolveError(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, entry.Resolved)
	assert.Equal(t, []string{"generation-failures/u1/a.txt"}, artifacts.deleted)

	// The record no longer shows up in the triage list.
	entries, err := svc.UnresolvedErrors(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveError_UnknownID(t *testing.T) {
	svc := NewDiagnosticsService(&fakeErrorLogRepo{}, newStubArtifactStore())

	_, err := svc.ResolveError(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
