package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

// RetentionDays is how long free accounts keep their history copies.
const RetentionDays = 7

// Service manages the saved recipes of a user and their history copies.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() (string, error)
}

// NewService wires a new recipe ledger.
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
		newID:  newRecipeID,
	}
}

// newRecipeID returns a UUIDv7, which sorts by creation time.
func newRecipeID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate recipe id: %w", err)
	}
	return id.String(), nil
}

func recipeRef(userID, id string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionRecipes, ID: id}
}

func historyRef(userID, id string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionHistory, ID: id}
}

// AddEntry saves a generated recipe with an expiry derived from duration and
// writes its history copy in the same transaction.
func (s *Service) AddEntry(ctx context.Context, session models.Session, title, ingredient, fullText string, duration models.Duration) (models.RecipeEntry, error) {
	offset, ok := duration.OffsetDays()
	if !ok {
		return models.RecipeEntry{}, fmt.Errorf("%w: unknown duration %q", models.ErrValidation, duration)
	}
	if strings.TrimSpace(fullText) == "" {
		return models.RecipeEntry{}, fmt.Errorf("%w: recipe text is empty", models.ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		title = models.TitleFromText(fullText)
	}

	id, err := s.newID()
	if err != nil {
		return models.RecipeEntry{}, err
	}

	now := s.now()
	entry := models.RecipeEntry{
		ID:         id,
		Title:      title,
		Ingredient: ingredient,
		FullRecipe: fullText,
		ExpiryDate: now.AddDate(0, 0, offset),
		CreatedAt:  now,
	}
	history := models.HistoryEntry{
		ID:          id,
		Title:       title,
		Ingredient:  ingredient,
		FullRecipe:  fullText,
		GeneratedAt: now,
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := repository.Save(ctx, tx, recipeRef(session.UserID, id), entry, false); err != nil {
			return err
		}
		return repository.Save(ctx, tx, historyRef(session.UserID, id), history, false)
	})
	if err != nil {
		return models.RecipeEntry{}, fmt.Errorf("save recipe: %w", err)
	}

	s.logger.Info("recipe saved",
		zap.String("user_id", session.UserID),
		zap.String("recipe_id", id),
		zap.String("duration", string(duration)))
	return entry, nil
}

// Get returns a single ledger entry.
func (s *Service) Get(ctx context.Context, session models.Session, id string) (models.RecipeEntry, error) {
	var entry models.RecipeEntry
	if err := repository.Load(ctx, s.store, recipeRef(session.UserID, id), &entry); err != nil {
		return models.RecipeEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

// List returns every ledger entry, oldest first.
func (s *Service) List(ctx context.Context, session models.Session) ([]models.RecipeEntry, error) {
	return ListEntries(ctx, s.store, session.UserID)
}

// ListEntries reads the recipes collection of userID through store, which may
// be a transaction.
func ListEntries(ctx context.Context, store repository.Store, userID string) ([]models.RecipeEntry, error) {
	docs, err := store.List(ctx, userID, repository.CollectionRecipes)
	if err != nil {
		return nil, err
	}

	entries := make([]models.RecipeEntry, 0, len(docs))
	for _, doc := range docs {
		var entry models.RecipeEntry
		if err := repository.Decode(doc.Fields, &entry); err != nil {
			return nil, err
		}
		entry.ID = doc.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

// Favorites returns the entries flagged as favorite.
func (s *Service) Favorites(ctx context.Context, session models.Session) ([]models.RecipeEntry, error) {
	if !session.Premium {
		return nil, models.ErrPremiumRequired
	}

	entries, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}

	favorites := entries[:0]
	for _, entry := range entries {
		if entry.Favorite {
			favorites = append(favorites, entry)
		}
	}
	return favorites, nil
}

// ToggleFavorite flips the favorite flag. Tier checks belong to the caller.
func (s *Service) ToggleFavorite(ctx context.Context, session models.Session, id string) (models.RecipeEntry, error) {
	var entry models.RecipeEntry
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		ref := recipeRef(session.UserID, id)
		if err := repository.Load(ctx, tx, ref, &entry); err != nil {
			return err
		}
		entry.ID = id
		entry.Favorite = !entry.Favorite
		return tx.Set(ctx, ref, repository.Fields{"favorite": entry.Favorite}, true)
	})
	if err != nil {
		return models.RecipeEntry{}, err
	}
	return entry, nil
}

// Remove deletes the entry and releases its schedule index entry and day
// membership. The history copy is kept.
func (s *Service) Remove(ctx context.Context, session models.Session, id string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		ref := recipeRef(session.UserID, id)
		if _, err := tx.Get(ctx, ref); err != nil {
			return err
		}
		if err := releaseSchedule(ctx, tx, session.UserID, id); err != nil {
			return err
		}
		return tx.Delete(ctx, ref)
	})
	if err != nil {
		return err
	}

	s.logger.Info("recipe removed", zap.String("user_id", session.UserID), zap.String("recipe_id", id))
	return nil
}

// MarkDone removes a cooked recipe from the ledger.
func (s *Service) MarkDone(ctx context.Context, session models.Session, id string) error {
	return s.Remove(ctx, session, id)
}

func releaseSchedule(ctx context.Context, tx repository.Store, userID, recipeID string) error {
	indexRef := repository.Ref{UserID: userID, Collection: repository.CollectionScheduleIndex, ID: recipeID}

	var index models.ScheduleIndexEntry
	err := repository.Load(ctx, tx, indexRef, &index)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	}

	dayRef := repository.Ref{UserID: userID, Collection: repository.CollectionScheduleDays, ID: index.Date}
	var day models.ScheduleDay
	err = repository.Load(ctx, tx, dayRef, &day)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return err
	default:
		kept := make([]string, 0, len(day.RecipeIDs))
		for _, rid := range day.RecipeIDs {
			if rid != recipeID {
				kept = append(kept, rid)
			}
		}
		if err := tx.Set(ctx, dayRef, repository.Fields{"recipeIds": kept}, true); err != nil {
			return err
		}
	}

	return tx.Delete(ctx, indexRef)
}

// History returns the retention copies, newest first, after applying the
// retention sweep. A non-empty query keeps entries whose title or ingredient
// contains it, ignoring case.
func (s *Service) History(ctx context.Context, session models.Session, query string) ([]models.HistoryEntry, error) {
	entries, err := s.RetentionSweep(ctx, session, RetentionDays)
	if err != nil {
		return nil, err
	}
	matched := entries[:0]
	for _, e := range entries {
		if MatchesQuery(e, query) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].GeneratedAt.After(matched[j].GeneratedAt)
	})
	return matched, nil
}

// MatchesQuery reports whether the title or ingredient contains query,
// ignoring case. A blank query matches everything.
func MatchesQuery(entry models.HistoryEntry, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.Title), query) ||
		strings.Contains(strings.ToLower(entry.Ingredient), query)
}

// RetentionSweep deletes history copies older than retentionDays for free
// accounts and returns the surviving entries. Premium accounts are exempt.
func (s *Service) RetentionSweep(ctx context.Context, session models.Session, retentionDays int) ([]models.HistoryEntry, error) {
	docs, err := s.store.List(ctx, session.UserID, repository.CollectionHistory)
	if err != nil {
		return nil, err
	}

	cutoff := time.Duration(retentionDays) * 24 * time.Hour
	now := s.now()

	kept := make([]models.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		var entry models.HistoryEntry
		if err := repository.Decode(doc.Fields, &entry); err != nil {
			return nil, err
		}
		entry.ID = doc.ID

		if !session.Premium && now.Sub(entry.GeneratedAt) > cutoff {
			if err := s.store.Delete(ctx, historyRef(session.UserID, doc.ID)); err != nil {
				return nil, err
			}
			s.logger.Debug("history entry expired",
				zap.String("user_id", session.UserID),
				zap.String("recipe_id", doc.ID))
			continue
		}
		kept = append(kept, entry)
	}
	return kept, nil
}

// HistoryEntry returns one retention copy.
func (s *Service) HistoryEntry(ctx context.Context, session models.Session, id string) (models.HistoryEntry, error) {
	var entry models.HistoryEntry
	if err := repository.Load(ctx, s.store, historyRef(session.UserID, id), &entry); err != nil {
		return models.HistoryEntry{}, err
	}
	entry.ID = id
	return entry, nil
}
