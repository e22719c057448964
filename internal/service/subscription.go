package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souschef-ai/backend/internal/models"
	apperrors "github.com/souschef-ai/backend/pkg/errors"
)

// SubscriptionService tracks plans and generation quotas. Payment processing
// happens on the hosted billing platform; this service only mirrors the
// entitlement that results.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Get returns the user's subscription, creating a free-tier record if none exists yet.
func (s *SubscriptionService) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = models.Subscription{
			ID:        uuid.New(),
			UserID:    userID,
			Plan:      models.PlanFree,
			Status:    models.SubscriptionActive,
			Quota:     models.FreeTierQuota,
			PeriodEnd: time.Now().AddDate(0, 1, 0),
		}
		if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
			return nil, err
		}
		return &sub, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CheckQuota returns a quota-exceeded error when the user has no generations
// left in the current period. The counter resets lazily when the period rolls over.
func (s *SubscriptionService) CheckQuota(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sub.Unlimited() {
		return nil
	}
	if time.Now().After(sub.PeriodEnd) {
		sub.GenerationsUsed = 0
		sub.PeriodEnd = time.Now().AddDate(0, 1, 0)
		if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
			return err
		}
	}
	if sub.Remaining() <= 0 {
		return apperrors.NewQuotaExceeded("generation quota exhausted for this billing period")
	}
	return nil
}

// ConsumeGeneration records one generation against the user's quota.
// Unlimited plans are not counted.
func (s *SubscriptionService) ConsumeGeneration(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sub.Unlimited() {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		UpdateColumn("generations_used", gorm.Expr("generations_used + 1")).Error
}

// Upgrade switches the user onto the premium plan. The billing platform
// confirms payment out of band before this is called.
func (s *SubscriptionService) Upgrade(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub.Plan = models.PlanPremium
	sub.Status = models.SubscriptionActive
	sub.PeriodEnd = time.Now().AddDate(0, 1, 0)
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel marks the subscription cancelled. The plan stays usable until the
// period end, after which Get lazily resets it to free tier behavior via quota checks.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionCancelled
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}
