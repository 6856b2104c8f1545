package model

import (
	"strings"
	"time"

	"popup-shop/internal/domain"

	"github.com/google/uuid"
)

type ActivationStatus string

const (
	ActivationStatusInactive ActivationStatus = "inactive"
	ActivationStatusActive   ActivationStatus = "active"
)

type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "unverified"
	VerificationStatusVerified   VerificationStatus = "verified"
)

// Shop is a sluggable storefront that only serves customers while it holds
// an unexpired activation window.
type Shop struct {
	ID                 string // UUID
	Name               string
	Slug               string // unique, lowercase ascii, hyphenated
	OwnerContact       string
	PayoutAccount      string
	ActivationStatus   ActivationStatus
	VerificationStatus VerificationStatus
	ActivationPlan     ActivationPlan // empty until first activation
	ActiveFrom         time.Time
	ActiveUntil        time.Time
	LastActivatedAt    *time.Time
	CreatedEmailSentAt *time.Time // set once the welcome notification went out
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewShop creates an inactive, unverified shop. The slug must already be allocated.
func NewShop(name, slug, ownerContact, payoutAccount string) (*Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" || slug == "" {
		return nil, domain.ErrInvalidInput
	}
	now := Millis(time.Now())
	return &Shop{
		ID:                 uuid.NewString(),
		Name:               name,
		Slug:               slug,
		OwnerContact:       strings.TrimSpace(ownerContact),
		PayoutAccount:      strings.TrimSpace(payoutAccount),
		ActivationStatus:   ActivationStatusInactive,
		VerificationStatus: VerificationStatusUnverified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (s *Shop) IsActive() bool { return s != nil && s.ActivationStatus == ActivationStatusActive }

// IsAdmissible reports whether the shop may serve customer traffic at now.
func (s *Shop) IsAdmissible(now time.Time) bool {
	return s.IsActive() && s.ActiveUntil.After(now)
}

// ExpiryDue reports whether an expiry job fenced on expected may deactivate
// the shop at now.
func (s *Shop) ExpiryDue(expected, now time.Time) bool {
	if !s.IsActive() {
		return false
	}
	if !Millis(s.ActiveUntil).Equal(Millis(expected)) {
		return false
	}
	return !s.ActiveUntil.After(now)
}

// Snapshot captures the fields an optimistic update is conditioned on.
func (s *Shop) Snapshot() ActivationSnapshot {
	return ActivationSnapshot{Status: s.ActivationStatus, ActiveUntil: s.ActiveUntil}
}

// ActivationSnapshot is the compare half of a compare-and-swap on a shop.
type ActivationSnapshot struct {
	Status      ActivationStatus
	ActiveUntil time.Time
}

// Millis truncates t to millisecond precision, the resolution every stored
// instant and fencing token is compared at.
func Millis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}
