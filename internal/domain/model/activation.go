package model

import (
	"time"

	"popup-shop/internal/domain"

	"github.com/google/uuid"
)

type ActivationPlan string

const (
	PlanEvent  ActivationPlan = "event"
	PlanSeason ActivationPlan = "season"
)

const (
	EventPrice  int64 = 10
	SeasonPrice int64 = 99

	EventExtension = 48 * time.Hour
	SeasonLength   = 180 * 24 * time.Hour
)

// ParsePlan validates a plan name coming from the outside world.
func ParsePlan(s string) (ActivationPlan, error) {
	switch ActivationPlan(s) {
	case PlanEvent:
		return PlanEvent, nil
	case PlanSeason:
		return PlanSeason, nil
	default:
		return "", domain.ErrInvalidInput
	}
}

// Price returns the fixed price of a plan in the smallest currency unit.
func (p ActivationPlan) Price() (int64, error) {
	switch p {
	case PlanEvent:
		return EventPrice, nil
	case PlanSeason:
		return SeasonPrice, nil
	default:
		return 0, domain.ErrInvalidInput
	}
}

// ShopActivation is the audit row written by every activation. Only the
// verification fields change after insert.
type ShopActivation struct {
	ID                 string // UUID
	ShopID             string
	Plan               ActivationPlan
	Amount             int64
	Message            string // payment reference shown to the payer
	ActiveFrom         time.Time
	ActiveUntil        time.Time
	VerificationStatus VerificationStatus
	VerifiedAt         *time.Time
	CreatedAt          time.Time
}

func NewShopActivation(shopID string, plan ActivationPlan, amount int64, message string, from, until, now time.Time) *ShopActivation {
	return &ShopActivation{
		ID:                 uuid.NewString(),
		ShopID:             shopID,
		Plan:               plan,
		Amount:             amount,
		Message:            message,
		ActiveFrom:         Millis(from),
		ActiveUntil:        Millis(until),
		VerificationStatus: VerificationStatusUnverified,
		CreatedAt:          Millis(now),
	}
}

// ExpiryJob is the payload of the deferred expiry check. ActiveUntil is the
// fencing token: the job only acts if the shop still holds this window.
type ExpiryJob struct {
	ShopID      string    `json:"shop_id"`
	ActiveUntil time.Time `json:"-"`
	// Deliveries counts hand-outs by the queue, including this one. Not part
	// of the job's identity.
	Deliveries int `json:"-"`
}

// FireAt is when the job becomes due.
func (j ExpiryJob) FireAt() time.Time { return j.ActiveUntil }
