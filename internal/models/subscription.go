package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanFree    = "free"
	PlanPremium = "premium"

	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// FreeTierQuota is the number of generations a free account gets per billing period.
const FreeTierQuota = 30

// Subscription tracks a user's plan and generation usage for the current
// billing period. Payments themselves are handled by the hosted platform;
// this record only mirrors the resulting entitlement.
type Subscription struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Plan            string    `gorm:"size:20;not null;default:'free'" json:"plan"`
	Status          string    `gorm:"size:20;not null;default:'active'" json:"status"`
	PeriodEnd       time.Time `json:"period_end"`
	GenerationsUsed int       `gorm:"not null;default:0" json:"generations_used"`
	Quota           int       `gorm:"not null;default:30" json:"quota"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Unlimited reports whether the subscription has no generation cap.
func (s *Subscription) Unlimited() bool {
	return s.Plan == PlanPremium && s.Status == SubscriptionActive
}

// Remaining returns how many generations are left this period.
func (s *Subscription) Remaining() int {
	if s.Unlimited() {
		return -1
	}
	remaining := s.Quota - s.GenerationsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
