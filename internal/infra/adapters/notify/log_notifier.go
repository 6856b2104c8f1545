package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/infra/i18n"
	"popup-shop/internal/infra/logging"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier only logs the rendered welcome message. It is used when no
// broker is configured.
// Owner contacts are redacted unless dev is set.
type LogNotifier struct {
	tr  *i18n.Translator
	loc *time.Location
	dev bool
	log *zerolog.Logger
}

func NewLogNotifier(tr *i18n.Translator, loc *time.Location, dev bool, logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{tr: tr, loc: loc, dev: dev, log: &compLog}
}

func (n *LogNotifier) SendWelcome(_ context.Context, shop *model.Shop) error {
	ev := newWelcomeEvent(n.tr, n.loc, shop, time.Now())
	n.log.Info().
		Str("shop_id", ev.ShopID).
		Str("to", logging.Redact(ev.OwnerContact, n.dev)).
		Str("subject", ev.Subject).
		Msg("welcome notification")
	return nil
}
