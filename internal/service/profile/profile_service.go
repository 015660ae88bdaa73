package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

// Defaults used in prompts when the profile is incomplete.
const (
	DefaultFirstname = "Utilisateur"
	DefaultGoal      = "Manger équilibré"
)

type infoDoc struct {
	Firstname string `json:"firstname"`
	Goal      string `json:"goal"`
}

type bodyDoc struct {
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

type allergiesDoc struct {
	Values []string `json:"values"`
}

// Service reads and writes the profile, body metrics and allergy documents.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService wires a new profile service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func ref(userID, collection, id string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: collection, ID: id}
}

// Get assembles the profile. Missing documents leave their fields empty.
func (s *Service) Get(ctx context.Context, userID string) (models.Profile, error) {
	var (
		info      infoDoc
		body      bodyDoc
		allergies allergiesDoc
	)
	loads := []struct {
		ref repository.Ref
		out any
	}{
		{ref(userID, repository.CollectionProfile, "info"), &info},
		{ref(userID, repository.CollectionBody, "metrics"), &body},
		{ref(userID, repository.CollectionAllergies, "list"), &allergies},
	}
	for _, l := range loads {
		if err := repository.Load(ctx, s.store, l.ref, l.out); err != nil && !errors.Is(err, models.ErrNotFound) {
			return models.Profile{}, err
		}
	}

	if allergies.Values == nil {
		allergies.Values = []string{}
	}
	return models.Profile{
		Firstname: info.Firstname,
		Goal:      info.Goal,
		Height:    body.Height,
		Weight:    body.Weight,
		Allergies: allergies.Values,
	}, nil
}

// Save stores the three documents together.
func (s *Service) Save(ctx context.Context, userID string, p models.Profile) (models.Profile, error) {
	if p.Height < 0 || p.Weight < 0 {
		return models.Profile{}, fmt.Errorf("%w: height and weight must be positive", models.ErrValidation)
	}

	allergies := make([]string, 0, len(p.Allergies))
	for _, a := range p.Allergies {
		if a = strings.TrimSpace(a); a != "" {
			allergies = append(allergies, a)
		}
	}
	p.Firstname = strings.TrimSpace(p.Firstname)
	p.Goal = strings.TrimSpace(p.Goal)
	p.Allergies = allergies

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := repository.Save(ctx, tx, ref(userID, repository.CollectionProfile, "info"), infoDoc{Firstname: p.Firstname, Goal: p.Goal}, true); err != nil {
			return err
		}
		if err := repository.Save(ctx, tx, ref(userID, repository.CollectionBody, "metrics"), bodyDoc{Height: p.Height, Weight: p.Weight}, false); err != nil {
			return err
		}
		return repository.Save(ctx, tx, ref(userID, repository.CollectionAllergies, "list"), allergiesDoc{Values: allergies}, false)
	})
	if err != nil {
		return models.Profile{}, err
	}

	s.logger.Info("profile saved", zap.String("user_id", userID))
	return p, nil
}

// PromptContext returns the profile with display defaults applied.
func (s *Service) PromptContext(ctx context.Context, userID string) (models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	if p.Firstname == "" {
		p.Firstname = DefaultFirstname
	}
	if p.Goal == "" {
		p.Goal = DefaultGoal
	}
	return p, nil
}

// DeleteAccount removes every document the user owns, quota state included.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", models.ErrValidation)
	}

	deleted := 0
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		for _, collection := range repository.UserCollections {
			docs, err := tx.List(ctx, userID, collection)
			if err != nil {
				return fmt.Errorf("list %s: %w", collection, err)
			}
			for _, doc := range docs {
				if err := tx.Delete(ctx, ref(userID, collection, doc.ID)); err != nil {
					return fmt.Errorf("delete %s/%s: %w", collection, doc.ID, err)
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("user_id", userID), zap.Int("documents", deleted))
	return nil
}
