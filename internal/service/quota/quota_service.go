package quota

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

const limitsDocID = "limits"

// Service tracks the free-tier weekly generation counter.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new quota tracker. Calendar computations use loc.
func NewService(store repository.Store, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ShouldReset reports whether the weekly counter must be zeroed. Any single
// condition is enough: no previous reset, a different year or month, seven or
// more calendar days since the last reset, or now being a Monday.
//
// The Monday clause resets on every check made on a Monday, so a Monday can
// hand out more than three generations. This mirrors the product behaviour.
func ShouldReset(now time.Time, lastReset *time.Time) bool {
	if lastReset == nil {
		return true
	}
	last := lastReset.In(now.Location())

	switch {
	case now.Year() != last.Year():
		return true
	case now.Month() != last.Month():
		return true
	case calendarDaysBetween(last, now) >= 7:
		return true
	case now.Weekday() == time.Monday:
		return true
	}
	return false
}

func calendarDaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func limitsRef(userID string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionSubscription, ID: limitsDocID}
}

func unlimited() models.QuotaResult {
	return models.QuotaResult{Allowed: true, Remaining: -1, Unlimited: true}
}

// CheckAndConsume reserves one generation for a free account. The new counter
// is persisted before the caller performs the generation, so a failed
// generation still spends the unit unless the caller calls Refund.
func (s *Service) CheckAndConsume(ctx context.Context, session models.Session) (models.QuotaResult, error) {
	if session.Premium {
		return unlimited(), nil
	}

	var result models.QuotaResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		state, err := loadState(ctx, tx, session.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		if ShouldReset(now, state.LastReset) {
			state.RecipesThisWeek = 0
		}

		if state.RecipesThisWeek >= models.FreeWeeklyLimit {
			result = models.QuotaResult{Allowed: false, Remaining: 0}
			return nil
		}

		state.RecipesThisWeek++
		state.LastReset = &now
		if err := repository.Save(ctx, tx, limitsRef(session.UserID), state, true); err != nil {
			return err
		}

		result = models.QuotaResult{Allowed: true, Remaining: models.FreeWeeklyLimit - state.RecipesThisWeek}
		return nil
	})
	if err != nil {
		return models.QuotaResult{}, err
	}

	s.logger.Debug("quota checked",
		zap.String("user_id", session.UserID),
		zap.Bool("allowed", result.Allowed),
		zap.Int("remaining", result.Remaining))
	return result, nil
}

// Status returns the remaining generations for the week, persisting a reset
// when the reset predicate holds.
func (s *Service) Status(ctx context.Context, session models.Session) (models.QuotaResult, error) {
	if session.Premium {
		return unlimited(), nil
	}

	var result models.QuotaResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		state, err := loadState(ctx, tx, session.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		if ShouldReset(now, state.LastReset) {
			state = models.QuotaState{RecipesThisWeek: 0, LastReset: &now}
			if err := repository.Save(ctx, tx, limitsRef(session.UserID), state, true); err != nil {
				return err
			}
		}

		remaining := max(models.FreeWeeklyLimit-state.RecipesThisWeek, 0)
		result = models.QuotaResult{Allowed: remaining > 0, Remaining: remaining}
		return nil
	})
	if err != nil {
		return models.QuotaResult{}, err
	}
	return result, nil
}

// Refund gives back one reserved unit after a failed generation.
func (s *Service) Refund(ctx context.Context, session models.Session) error {
	if session.Premium {
		return nil
	}

	return s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		state, err := loadState(ctx, tx, session.UserID)
		if err != nil {
			return err
		}
		if state.RecipesThisWeek == 0 {
			return nil
		}
		s.logger.Info("refunding quota unit", zap.String("user_id", session.UserID))
		return tx.Set(ctx, limitsRef(session.UserID), repository.Fields{"recipesThisWeek": state.RecipesThisWeek - 1}, true)
	})
}

func loadState(ctx context.Context, store repository.Store, userID string) (models.QuotaState, error) {
	var state models.QuotaState
	err := repository.Load(ctx, store, limitsRef(userID), &state)
	if errors.Is(err, models.ErrNotFound) {
		return models.QuotaState{}, nil
	}
	return state, err
}
