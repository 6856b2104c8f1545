package usecase

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"popup-shop/internal/domain/model"
)

const DefaultReferencePrefix = "Shop activation"

// ActivationMessage builds the payment reference shown to a payer of an activation.
func ActivationMessage(prefix string, shop *model.Shop) string {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return strings.Join([]string{prefix, shop.ID, shop.Slug, shop.Name}, " ")
}

// CheckoutReference builds a best-effort human readable reference for a sale:
// <slug>-<YYMMDD>-<4 chars>. It is not guaranteed to be unique.
func CheckoutReference(slug string, now time.Time) (string, error) {
	// Same alphabet as printed codes: no O/0 or I/1 lookalikes.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = chars[int(buf[i])%len(chars)]
	}
	return slug + "-" + now.Format("060102") + "-" + string(buf), nil
}
