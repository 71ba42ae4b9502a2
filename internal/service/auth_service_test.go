package service

import (
	"context"
	"testing"
	"time"

	"fitforge/coach-app/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testJWTSecret = "test-secret-not-for-production"

func newTestAuthService() (AuthService, *fakeUserRepo, *fakeProfileRepo) {
	userRepo := newFakeUserRepo()
	profileRepo := &fakeProfileRepo{}
	return NewAuthService(userRepo, profileRepo, testJWTSecret, time.Hour), userRepo, profileRepo
}

func TestRegister(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService()

	user, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.NotEqual(t, primitive.NilObjectID, user.ID)
	// The hash never leaves the service.
	assert.Empty(t, user.PasswordHash)

	stored, err := userRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "password123", stored.PasswordHash)

	// Registration seeds a placeholder profile.
	require.NotNil(t, profileRepo.profile)
	assert.Equal(t, user.ID, profileRepo.profile.UserID)
	assert.Equal(t, domain.ExperienceBeginner, profileRepo.profile.ExperienceLevel)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Imposter", "ada@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService()

	registered, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	token, user, err := svc.Login(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	// The token carries the user id and a future expiry.
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, registered.ID.Hex(), claims.UserID)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestGetJWTSecret(t *testing.T) {
	svc, _, _ := newTestAuthService()
	// Route setup reads the middleware secret from here.
	assert.Equal(t, testJWTSecret, svc.GetJWTSecret())
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSaveProfile_Validation(t *testing.T) {
	svc := NewProfileService(&fakeProfileRepo{})
	userID := primitive.NewObjectID()

	_, err := svc.SaveProfile(context.Background(), userID, &domain.UserProfile{ExperienceLevel: "expert"})
	assert.ErrorIs(t, err, ErrProfileValidationFailed)

	_, err = svc.SaveProfile(context.Background(), userID, &domain.UserProfile{
		ExperienceLevel: domain.ExperienceAdvanced,
		Age:             8,
	})
	assert.ErrorIs(t, err, ErrProfileValidationFailed)

	saved, err := svc.SaveProfile(context.Background(), userID, &domain.UserProfile{
		ExperienceLevel: domain.ExperienceAdvanced,
		Age:             30,
		WeeklyFrequency: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, saved.UserID)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := NewProfileService(&fakeProfileRepo{})

	_, err := svc.GetProfile(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
