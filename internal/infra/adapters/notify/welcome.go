package notify

import (
	"time"

	"github.com/google/uuid"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/infra/i18n"
)

const EventTypeShopWelcome = "shop.welcome"

// WelcomeEvent is what the mail service consumes to send the one-time
// welcome message. Instants are unix milliseconds.
type WelcomeEvent struct {
	EventID      string `json:"event_id"`
	EventType    string `json:"event_type"`
	ShopID       string `json:"shop_id"`
	ShopName     string `json:"shop_name"`
	Slug         string `json:"slug"`
	OwnerContact string `json:"owner_contact"`
	ActiveUntil  int64  `json:"active_until"`
	Lang         string `json:"lang"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	OccurredAt   int64  `json:"occurred_at"`
}

func newWelcomeEvent(tr *i18n.Translator, loc *time.Location, shop *model.Shop, now time.Time) WelcomeEvent {
	until := shop.ActiveUntil.In(loc).Format("2006-01-02 15:04")
	return WelcomeEvent{
		EventID:      uuid.NewString(),
		EventType:    EventTypeShopWelcome,
		ShopID:       shop.ID,
		ShopName:     shop.Name,
		Slug:         shop.Slug,
		OwnerContact: shop.OwnerContact,
		ActiveUntil:  shop.ActiveUntil.UnixMilli(),
		Lang:         tr.Lang(),
		Subject:      tr.T("welcome.subject", shop.Name),
		Body:         tr.T("welcome.body", shop.Name, shop.Slug, until),
		OccurredAt:   now.UnixMilli(),
	}
}
