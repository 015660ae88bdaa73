package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

// Service resolves the caller session and stores the Premium flag.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new subscription service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func statusRef(userID string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionSubscription, ID: "status"}
}

// Session builds the explicit session passed to every other service.
// Accounts without a status document are free.
func (s *Service) Session(ctx context.Context, userID string) (models.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Session{}, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}

	sub, err := s.Get(ctx, userID)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{UserID: userID, Premium: sub.IsPremium}, nil
}

// Get returns the stored subscription status.
func (s *Service) Get(ctx context.Context, userID string) (models.Subscription, error) {
	var sub models.Subscription
	err := repository.Load(ctx, s.store, statusRef(userID), &sub)
	if errors.Is(err, models.ErrNotFound) {
		return models.Subscription{}, nil
	}
	return sub, err
}

// SetPremium stores the Premium flag.
func (s *Service) SetPremium(ctx context.Context, userID string, premium bool) (models.Subscription, error) {
	sub := models.Subscription{IsPremium: premium, UpdatedAt: s.now()}
	if err := repository.Save(ctx, s.store, statusRef(userID), sub, true); err != nil {
		return models.Subscription{}, err
	}

	s.logger.Info("subscription updated", zap.String("user_id", userID), zap.Bool("premium", premium))
	return sub, nil
}
