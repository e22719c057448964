package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/internal/models"
	"github.com/souschef-ai/backend/internal/types"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// Register creates the user, profile, preference rows and starter
// subscription, returning a signed token.
func (s *AuthService) Register(ctx context.Context, req *types.RegisterRequest) (string, error) {
	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return "", apperrors.New(apperrors.CodeConflict, "user already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := models.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.UserProfile{
			ID:       uuid.New(),
			UserID:   user.ID,
			Username: req.Username,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		for _, p := range req.DietaryPreferences {
			pref := strings.TrimSpace(p)
			if pref == "" {
				continue
			}
			dp := models.DietaryPreference{ID: uuid.New(), UserID: user.ID, PreferenceType: pref}
			if err := tx.Create(&dp).Error; err != nil {
				return err
			}
		}
		for _, a := range req.Allergens {
			name := strings.TrimSpace(a)
			if name == "" {
				continue
			}
			record := models.Allergen{ID: uuid.New(), UserID: user.ID, AllergenName: name, SeverityLevel: 1}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		sub := models.Subscription{
			ID:        uuid.New(),
			UserID:    user.ID,
			Plan:      models.PlanFree,
			Status:    models.SubscriptionActive,
			Quota:     models.FreeTierQuota,
			PeriodEnd: time.Now().AddDate(0, 1, 0),
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return "", err
	}

	return s.generateToken(user.ID, req.Username)
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	var profile models.UserProfile
	username := ""
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		username = profile.Username
	}

	return s.generateToken(user.ID, username)
}

// ValidateToken parses and validates a JWT token
func (s *AuthService) ValidateToken(token string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserPreferences loads a user's dietary preferences and allergens for
// prompt construction.
func (s *AuthService) UserPreferences(ctx context.Context, userID uuid.UUID) (dietary []string, allergens []string, err error) {
	var prefs []models.DietaryPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return nil, nil, err
	}
	for _, p := range prefs {
		if p.PreferenceType == "custom" && p.CustomName != "" {
			dietary = append(dietary, p.CustomName)
		} else {
			dietary = append(dietary, p.PreferenceType)
		}
	}

	var alls []models.Allergen
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&alls).Error; err != nil {
		return nil, nil, err
	}
	for _, a := range alls {
		allergens = append(allergens, a.AllergenName)
	}
	return dietary, allergens, nil
}

func (s *AuthService) generateToken(userID uuid.UUID, username string) (string, error) {
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID.String(),
		},
		UserID:   userID,
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
