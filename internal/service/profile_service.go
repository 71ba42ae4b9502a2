package service

import (
	"context"
	"errors"
	"fmt"

	"fitforge/coach-app/internal/domain"
	"fitforge/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProfileNotFound         = errors.New("training profile not found")
	ErrProfileValidationFailed = errors.New("profile validation failed")
)

// ProfileService manages the per-user training profile.
type ProfileService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error)
	SaveProfile(ctx context.Context, userID primitive.ObjectID, profile *domain.UserProfile) (*domain.UserProfile, error)
}

// profileService implements the ProfileService interface.
type profileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// GetProfile retrieves the profile for a user.
func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// SaveProfile validates and upserts the profile for a user.
func (s *profileService) SaveProfile(ctx context.Context, userID primitive.ObjectID, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if userID == primitive.NilObjectID {
		return nil, errors.New("user ID is required")
	}
	if err := validateProfile(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileValidationFailed, err)
	}

	profile.UserID = userID
	return s.profileRepo.Upsert(ctx, profile)
}

func validateProfile(p *domain.UserProfile) error {
	switch p.ExperienceLevel {
	case domain.ExperienceBeginner, domain.ExperienceIntermediate, domain.ExperienceAdvanced:
	default:
		return fmt.Errorf("experience level must be one of beginner, intermediate, advanced")
	}
	if p.Age != 0 && (p.Age < 13 || p.Age > 120) {
		return fmt.Errorf("age must be between 13 and 120")
	}
	if p.BodyWeightKg != 0 && (p.BodyWeightKg < 20 || p.BodyWeightKg > 400) {
		return fmt.Errorf("body weight must be between 20 and 400 kg")
	}
	if p.WeeklyFrequency != 0 && (p.WeeklyFrequency < 1 || p.WeeklyFrequency > 7) {
		return fmt.Errorf("weekly frequency must be between 1 and 7")
	}
	return nil
}
