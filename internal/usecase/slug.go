package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/ports/repository"
)

// MaxSlugSuffix bounds suffix probing (base-2 ... base-MaxSlugSuffix).
const MaxSlugSuffix = 10000

// Letters that do not decompose into ASCII plus combining marks.
var transliteration = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "ø", "o", "œ", "oe",
	"đ", "d", "ð", "d", "ł", "l", "þ", "th", "ı", "i",
)

// NormalizeSlug lowercases s, strips diacritics, collapses every run of
// non-alphanumerics into one hyphen and trims hyphens at both ends.
func NormalizeSlug(s string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	folded = transliteration.Replace(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "", domain.ErrInvalidInput
	}
	return b.String(), nil
}

// SlugAllocator picks an unused slug for a new shop. The check is advisory:
// the unique index on shops.slug is what actually guarantees uniqueness, so
// callers retry on domain.ErrConflict from the insert.
type SlugAllocator struct {
	shops repository.ShopRepository
}

func NewSlugAllocator(shops repository.ShopRepository) *SlugAllocator {
	return &SlugAllocator{shops: shops}
}

// Allocate normalizes nameOrSlug and returns a free slug. An explicit slug
// that is taken fails with domain.ErrSlugTaken instead of being renamed.
// Exhausting the suffix range fails with domain.ErrConflict.
func (a *SlugAllocator) Allocate(ctx context.Context, nameOrSlug string, explicit bool) (string, error) {
	base, err := NormalizeSlug(nameOrSlug)
	if err != nil {
		return "", err
	}
	existing, err := a.shops.ListSlugsWithPrefix(ctx, repository.NoTX, base)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base, nil
	}
	if explicit {
		return "", domain.ErrSlugTaken
	}
	for n := 2; n <= MaxSlugSuffix; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free suffix for slug %q: %w", base, domain.ErrConflict)
}
