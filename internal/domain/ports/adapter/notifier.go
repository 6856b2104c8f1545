package adapter

import (
	"context"

	"popup-shop/internal/domain/model"
)

// Notifier hands the one-time welcome message to the outbound mail service.
type Notifier interface {
	SendWelcome(ctx context.Context, shop *model.Shop) error
}
