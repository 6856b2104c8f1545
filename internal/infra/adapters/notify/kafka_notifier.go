package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"popup-shop/internal/config"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/infra/i18n"
)

var _ adapter.Notifier = (*KafkaNotifier)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes welcome events keyed by shop id.
type KafkaNotifier struct {
	writer messageWriter
	tr     *i18n.Translator
	loc    *time.Location
	now    func() time.Time
	log    *zerolog.Logger
}

func NewKafkaNotifier(cfg config.KafkaConfig, tr *i18n.Translator, loc *time.Location, logger *zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return newKafkaNotifier(writer, tr, loc, logger)
}

func newKafkaNotifier(w messageWriter, tr *i18n.Translator, loc *time.Location, logger *zerolog.Logger) *KafkaNotifier {
	compLog := logger.With().Str("component", "KafkaNotifier").Logger()
	return &KafkaNotifier{writer: w, tr: tr, loc: loc, now: time.Now, log: &compLog}
}

func (n *KafkaNotifier) SendWelcome(ctx context.Context, shop *model.Shop) error {
	event := newWelcomeEvent(n.tr, n.loc, shop, n.now())
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(shop.ID),
		Value: value,
		Time:  n.now(),
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	n.log.Debug().Str("shop_id", shop.ID).Str("event_id", event.EventID).Msg("welcome event published")
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
