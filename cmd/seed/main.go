package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/config"
	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/infra/adapters/notify"
	pg "popup-shop/internal/infra/db/postgres"
	"popup-shop/internal/infra/i18n"
	"popup-shop/internal/infra/logging"
	"popup-shop/internal/infra/security"
	"popup-shop/internal/usecase"
)

// sweeperOnly leaves expiry of seeded windows to the running service's overdue sweep.
type sweeperOnly struct{ log *zerolog.Logger }

func (s sweeperOnly) ScheduleExpiry(_ context.Context, job model.ExpiryJob) error {
	s.log.Debug().Str("shop_id", job.ShopID).Time("fire_at", job.FireAt()).Msg("expiry left to sweeper")
	return nil
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	activate := flag.String("activate", "event", "plan to activate seeded shops with (event|season|none)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	var plan model.ActivationPlan
	if *activate != "none" {
		if plan, err = model.ParsePlan(*activate); err != nil {
			log.Fatalf("-activate: unknown plan %q", *activate)
		}
	}
	loc, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var repoOpts []pg.ShopRepoOption
	if cfg.Security.PayoutKey != "" {
		sealer, err := security.NewPayoutCipher(cfg.Security.PayoutKey)
		if err != nil {
			log.Fatalf("payout cipher: %v", err)
		}
		repoOpts = append(repoOpts, pg.WithPayoutSealer(sealer))
	}
	shopRepo := pg.NewShopRepo(pool, repoOpts...)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Shop.Language)
	if err != nil {
		log.Fatalf("translations: %v", err)
	}
	shopUC := usecase.NewShopUseCase(shopRepo, nil, logger)
	actUC := usecase.NewActivationUseCase(shopRepo, pg.NewActivationRepo(pool), pg.NewTxManager(pool),
		sweeperOnly{log: logger}, notify.NewLogNotifier(tr, loc, true, logger), logger,
		usecase.WithLocation(loc), usecase.WithReferencePrefix(cfg.Shop.ReferencePrefix))

	seed := []struct {
		Name, Slug, Contact, Payout string
	}{
		{"IK Exempel", "", "kansli@ik-exempel.se", "SE45 5000 0000 0583 9825 7466"},
		{"Loppis på Torget", "loppis", "loppis@example.se", ""},
		{"Café Åre", "", "hej@cafeare.se", "SE35 5000 0000 0549 1000 0003"},
	}

	for _, s := range seed {
		slug := s.Slug
		if slug == "" {
			if slug, err = usecase.NormalizeSlug(s.Name); err != nil {
				log.Fatalf("slug for %q: %v", s.Name, err)
			}
		}
		if existing, err := shopUC.GetBySlug(ctx, slug); err == nil {
			fmt.Printf("exists: %s (id=%s, status=%s)\n", existing.Slug, existing.ID, existing.ActivationStatus)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("lookup %q: %v", slug, err)
		}

		shop, err := shopUC.Create(ctx, s.Name, s.Contact, s.Payout, s.Slug)
		if err != nil {
			log.Fatalf("create shop %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s)\n", shop.Slug, shop.ID)

		if plan == "" {
			continue
		}
		res, err := actUC.Activate(ctx, shop.ID, plan)
		if err != nil {
			log.Fatalf("activate %q: %v", shop.Slug, err)
		}
		fmt.Printf("  activated %s until %s, pay %d with message %q\n",
			res.Plan, res.ActiveUntil.In(loc).Format(time.RFC3339), res.Amount, res.Message)
	}

	fmt.Println("Seeding complete.")
}
