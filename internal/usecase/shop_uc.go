package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/domain/ports/adapter"
	"popup-shop/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

const (
	maxCreateAttempts = 3
	slugLockTTL       = 5 * time.Second
)

type ShopUseCase interface {
	// Create allocates a slug (from slug when given, else from name) and
	// inserts an inactive shop.
	Create(ctx context.Context, name, ownerContact, payoutAccount, slug string) (*model.Shop, error)
	Get(ctx context.Context, id string) (*model.Shop, error)
	GetBySlug(ctx context.Context, slug string) (*model.Shop, error)
	// Admission reports whether the shop behind slug may serve customers now.
	Admission(ctx context.Context, slug string) (*model.Shop, bool, error)
}

var _ ShopUseCase = (*shopUC)(nil)

type shopUC struct {
	shops  repository.ShopRepository
	slugs  *SlugAllocator
	locker adapter.Locker
	now    func() time.Time
	log    *zerolog.Logger
}

// NewShopUseCase wires shop creation. locker may be nil.
func NewShopUseCase(shops repository.ShopRepository, locker adapter.Locker, logger *zerolog.Logger) *shopUC {
	compLog := logger.With().Str("component", "ShopUC").Logger()
	return &shopUC{
		shops:  shops,
		slugs:  NewSlugAllocator(shops),
		locker: locker,
		now:    time.Now,
		log:    &compLog,
	}
}

func (u *shopUC) Create(ctx context.Context, name, ownerContact, payoutAccount, slug string) (*model.Shop, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidInput
	}
	explicit := strings.TrimSpace(slug) != ""
	source := name
	if explicit {
		source = slug
	}
	base, err := NormalizeSlug(source)
	if err != nil {
		return nil, err
	}

	// Serializing allocations of one base slug only reduces insert conflicts;
	// the unique index stays the real guard, so lock failures are not fatal.
	if u.locker != nil {
		key := "slug:" + base
		if token, err := u.locker.TryLock(ctx, key, slugLockTTL); err != nil {
			u.log.Warn().Err(err).Str("slug", base).Msg("slug lock unavailable, allocating without it")
		} else {
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					u.log.Warn().Err(err).Str("slug", base).Msg("slug unlock failed")
				}
			}()
		}
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		allocated, err := u.slugs.Allocate(ctx, source, explicit)
		if err != nil {
			return nil, err
		}
		shop, err := model.NewShop(name, allocated, ownerContact, payoutAccount)
		if err != nil {
			return nil, err
		}
		err = u.shops.Create(ctx, repository.NoTX, shop)
		if err == nil {
			u.log.Info().Str("shop_id", shop.ID).Str("slug", shop.Slug).Msg("shop created")
			return shop, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if explicit {
			return nil, domain.ErrSlugTaken
		}
		u.log.Debug().Str("slug", allocated).Int("attempt", attempt).Msg("slug raced at insert, reallocating")
	}
	return nil, domain.ErrConflict
}

func (u *shopUC) Get(ctx context.Context, id string) (*model.Shop, error) {
	return u.shops.FindByID(ctx, repository.NoTX, id)
}

func (u *shopUC) GetBySlug(ctx context.Context, slug string) (*model.Shop, error) {
	return u.shops.FindBySlug(ctx, repository.NoTX, slug)
}

func (u *shopUC) Admission(ctx context.Context, slug string) (*model.Shop, bool, error) {
	shop, err := u.shops.FindBySlug(ctx, repository.NoTX, slug)
	if err != nil {
		return nil, false, err
	}
	return shop, shop.IsAdmissible(u.now()), nil
}
