package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popup-shop/internal/domain"
)

func TestNewShop(t *testing.T) {
	s, err := NewShop("  IK Exempel ", "ik-exempel", " owner@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "IK Exempel", s.Name)
	assert.Equal(t, "owner@example.com", s.OwnerContact)
	assert.Equal(t, ActivationStatusInactive, s.ActivationStatus)
	assert.Equal(t, VerificationStatusUnverified, s.VerificationStatus)
	assert.True(t, s.ActiveUntil.IsZero())
	assert.Nil(t, s.CreatedEmailSentAt)
	assert.NotEmpty(t, s.ID)

	_, err = NewShop(" ", "x", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = NewShop("x", "", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestShop_IsAdmissible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Shop{ActivationStatus: ActivationStatusActive, ActiveUntil: now.Add(time.Millisecond)}
	assert.True(t, s.IsAdmissible(now))

	s.ActiveUntil = now
	assert.False(t, s.IsAdmissible(now))

	s.ActiveUntil = now.Add(time.Hour)
	s.ActivationStatus = ActivationStatusInactive
	assert.False(t, s.IsAdmissible(now))

	var none *Shop
	assert.False(t, none.IsActive())
}

func TestShop_ExpiryDue(t *testing.T) {
	until := time.Date(2024, 6, 3, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	s := &Shop{ActivationStatus: ActivationStatusActive, ActiveUntil: until}

	assert.True(t, s.ExpiryDue(until, until))
	assert.True(t, s.ExpiryDue(until.Add(500*time.Microsecond), until.Add(time.Hour)), "tokens compare at ms precision")
	assert.False(t, s.ExpiryDue(until, until.Add(-time.Millisecond)), "not due yet")
	assert.False(t, s.ExpiryDue(until.Add(-time.Hour), until.Add(time.Hour)), "stale token")

	s.ActivationStatus = ActivationStatusInactive
	assert.False(t, s.ExpiryDue(until, until.Add(time.Hour)))
}

func TestPlans(t *testing.T) {
	p, err := ParsePlan("event")
	require.NoError(t, err)
	price, err := p.Price()
	require.NoError(t, err)
	assert.Equal(t, int64(10), price)

	p, err = ParsePlan("season")
	require.NoError(t, err)
	price, err = p.Price()
	require.NoError(t, err)
	assert.Equal(t, int64(99), price)

	_, err = ParsePlan("Event")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = ActivationPlan("").Price()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewTransaction(t *testing.T) {
	items := []TransactionItem{{Name: "a", UnitPrice: 25, Quantity: 2}, {Name: "b", UnitPrice: 10, Quantity: 1}}
	total, err := Total(items)
	require.NoError(t, err)
	assert.Equal(t, int64(60), total)

	tx, err := NewTransaction("shop-1", 60, "ref", items)
	require.NoError(t, err)
	assert.Len(t, tx.ID, 26)
	assert.Equal(t, TransactionStatusPending, tx.Status)

	items[0].Quantity = 99
	assert.Equal(t, 2, tx.Items[0].Quantity, "items are copied")

	_, err = NewTransaction("shop-1", 1, "ref", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTotal_RejectsOverflowAndNegatives(t *testing.T) {
	cases := []struct {
		name  string
		items []TransactionItem
	}{
		{"negative price", []TransactionItem{{Name: "a", UnitPrice: -5, Quantity: 1}}},
		{"negative quantity", []TransactionItem{{Name: "a", UnitPrice: 5, Quantity: -1}}},
		{"line overflow", []TransactionItem{{Name: "a", UnitPrice: math.MaxInt64/2 + 1, Quantity: 2}}},
		{"sum overflow", []TransactionItem{
			{Name: "a", UnitPrice: math.MaxInt64 - 10, Quantity: 1},
			{Name: "b", UnitPrice: 11, Quantity: 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Total(tc.items)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	total, err := Total([]TransactionItem{{Name: "a", UnitPrice: math.MaxInt64, Quantity: 1}, {Name: "b", UnitPrice: 0, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)
}

func TestMillis(t *testing.T) {
	in := time.Date(2024, 1, 1, 0, 0, 0, 123456789, time.UTC)
	assert.Equal(t, 123000000, Millis(in).Nanosecond())
}
