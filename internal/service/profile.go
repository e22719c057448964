package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/internal/models"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// ProfileService owns user profile records and preference lists.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile returns the user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies partial updates to the profile and, when preference
// lists are provided, replaces the stored lists wholesale.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *types.UpdateProfileRequest) (*models.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Username != "" {
			profile.Username = req.Username
		}
		if req.Bio != "" {
			profile.Bio = req.Bio
		}
		if req.CookingAbilityLevel != "" {
			profile.CookingAbilityLevel = req.CookingAbilityLevel
		}
		if err := tx.Save(profile).Error; err != nil {
			return err
		}

		if req.DietaryPreferences != nil {
			if err := tx.Where("user_id = ?", userID).Delete(&models.DietaryPreference{}).Error; err != nil {
				return err
			}
			for _, p := range req.DietaryPreferences {
				pref := strings.TrimSpace(p)
				if pref == "" {
					continue
				}
				dp := models.DietaryPreference{ID: uuid.New(), UserID: userID, PreferenceType: pref}
				if err := tx.Create(&dp).Error; err != nil {
					return err
				}
			}
		}

		if req.Allergens != nil {
			if err := tx.Where("user_id = ?", userID).Delete(&models.Allergen{}).Error; err != nil {
				return err
			}
			for _, a := range req.Allergens {
				name := strings.TrimSpace(a)
				if name == "" {
					continue
				}
				record := models.Allergen{ID: uuid.New(), UserID: userID, AllergenName: name, SeverityLevel: 1}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
