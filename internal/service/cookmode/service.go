// Package cookmode turns a saved recipe into a timer and two checklists.
package cookmode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

// View is what the cook-mode screen displays.
type View struct {
	RecipeID string `json:"recipeId"`
	Title    string `json:"title"`
	Parsed
}

// Service opens recipes in cook mode.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService wires a new cook-mode service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Open parses the recipe text of recipeID. The ledger entry is used when it
// still exists, the history copy otherwise. Premium only.
func (s *Service) Open(ctx context.Context, session models.Session, recipeID string) (View, error) {
	if !session.Premium {
		return View{}, models.ErrPremiumRequired
	}

	title, text, err := s.loadText(ctx, session.UserID, recipeID)
	if err != nil {
		return View{}, err
	}
	if title == "" {
		title = models.TitleFromText(text)
	}

	view := View{RecipeID: recipeID, Title: title, Parsed: Parse(text)}
	s.logger.Debug("cook mode opened",
		zap.String("user_id", session.UserID),
		zap.String("recipe_id", recipeID),
		zap.Int("ingredients", len(view.Ingredients)),
		zap.Int("steps", len(view.Steps)))
	return view, nil
}

func (s *Service) loadText(ctx context.Context, userID, recipeID string) (string, string, error) {
	var entry models.RecipeEntry
	err := repository.Load(ctx, s.store, repository.Ref{UserID: userID, Collection: repository.CollectionRecipes, ID: recipeID}, &entry)
	if err == nil {
		return entry.Title, entry.FullRecipe, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return "", "", err
	}

	var history models.HistoryEntry
	if err := repository.Load(ctx, s.store, repository.Ref{UserID: userID, Collection: repository.CollectionHistory, ID: recipeID}, &history); err != nil {
		return "", "", err
	}
	return history.Title, history.FullRecipe, nil
}
