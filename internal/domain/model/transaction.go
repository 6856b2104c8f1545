package model

import (
	"crypto/rand"
	"math"
	"time"

	"popup-shop/internal/domain"

	"github.com/oklog/ulid/v2"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusVerified TransactionStatus = "verified"
)

type TransactionItem struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Transaction is one checkout attempt against a shop. It moves from pending
// to verified once and never back.
type Transaction struct {
	ID         string // ULID, sortable by creation
	ShopID     string
	Amount     int64
	Reference  string
	Status     TransactionStatus
	Items      []TransactionItem
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

func NewTransaction(shopID string, amount int64, reference string, items []TransactionItem) (*Transaction, error) {
	if shopID == "" || len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := Millis(time.Now())
	cp := make([]TransactionItem, len(items))
	copy(cp, items)
	return &Transaction{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		ShopID:    shopID,
		Amount:    amount,
		Reference: reference,
		Status:    TransactionStatusPending,
		Items:     cp,
		CreatedAt: now,
	}, nil
}

// Total sums unit price times quantity across items. Negative prices or
// quantities and sums that do not fit in an int64 are ErrInvalidInput.
func Total(items []TransactionItem) (int64, error) {
	var sum int64
	for _, it := range items {
		if it.UnitPrice < 0 || it.Quantity < 0 {
			return 0, domain.ErrInvalidInput
		}
		q := int64(it.Quantity)
		if q != 0 && it.UnitPrice > math.MaxInt64/q {
			return 0, domain.ErrInvalidInput
		}
		line := it.UnitPrice * q
		if sum > math.MaxInt64-line {
			return 0, domain.ErrInvalidInput
		}
		sum += line
	}
	return sum, nil
}
