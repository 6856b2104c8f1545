package usecase

import (
	"time"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
)

// Window is a half-open activation interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ResolveWindow computes the activation window a purchase of plan grants at now.
//
// Season plans always start a fresh 180 day window. Event plans extend an
// unexpired active window by 48 hours from its current end; otherwise they
// cover the rest of today plus 48 hours.
func ResolveWindow(plan model.ActivationPlan, now, currentActiveUntil time.Time, isCurrentlyActive bool) (Window, error) {
	switch plan {
	case model.PlanSeason:
		return Window{Start: now, End: now.Add(model.SeasonLength)}, nil
	case model.PlanEvent:
		if isCurrentlyActive && currentActiveUntil.After(now) {
			return Window{Start: now, End: currentActiveUntil.Add(model.EventExtension)}, nil
		}
		return Window{Start: now, End: EndOfDay(now).Add(model.EventExtension)}, nil
	default:
		return Window{}, domain.ErrInvalidInput
	}
}
