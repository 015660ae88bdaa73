package planning

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
	"github.com/mamadbah2/saveeat/internal/service/ledger"
)

// DayView is one day of the planner with its recipes resolved.
type DayView struct {
	Date    string               `json:"date"`
	Label   string               `json:"label"`
	Recipes []models.RecipeEntry `json:"recipes"`
}

// ReconcileReport counts the repairs applied by Reconcile.
type ReconcileReport struct {
	DaysUpdated    int `json:"daysUpdated"`
	IndexesDropped int `json:"indexesDropped"`
}

// Changed reports whether anything was repaired.
func (r ReconcileReport) Changed() bool {
	return r.DaysUpdated > 0 || r.IndexesDropped > 0
}

// Service assigns ledger recipes to calendar days. The schedule index is the
// source of truth: a recipe belongs to the day its index entry names.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new day scheduler.
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

func dayRef(userID, date string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionScheduleDays, ID: date}
}

func indexRef(userID, recipeID string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionScheduleIndex, ID: recipeID}
}

func recipeRef(userID, recipeID string) repository.Ref {
	return repository.Ref{UserID: userID, Collection: repository.CollectionRecipes, ID: recipeID}
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: invalid date %q", models.ErrValidation, date)
	}
	return nil
}

// ThisWeek returns the week containing the current day.
func (s *Service) ThisWeek() Week {
	return WeekOf(s.now())
}

// ListAvailable returns the ledger entries that are not assigned to any day.
func (s *Service) ListAvailable(ctx context.Context, session models.Session) ([]models.RecipeEntry, error) {
	entries, err := ledger.ListEntries(ctx, s.store, session.UserID)
	if err != nil {
		return nil, err
	}
	index, err := loadIndex(ctx, s.store, session.UserID)
	if err != nil {
		return nil, err
	}

	available := make([]models.RecipeEntry, 0, len(entries))
	for _, entry := range entries {
		if _, assigned := index[entry.ID]; !assigned {
			available = append(available, entry)
		}
	}
	return available, nil
}

// Assign plans recipeID on date. A recipe already present in the index is
// refused with ErrAlreadyAssigned, even for the same date.
func (s *Service) Assign(ctx context.Context, session models.Session, date, recipeID string) (models.ScheduleDay, error) {
	if err := validateDate(date); err != nil {
		return models.ScheduleDay{}, err
	}
	if recipeID == "" {
		return models.ScheduleDay{}, fmt.Errorf("%w: recipe id is required", models.ErrValidation)
	}

	var day models.ScheduleDay
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Get(ctx, recipeRef(session.UserID, recipeID)); err != nil {
			return err
		}

		_, err := tx.Get(ctx, indexRef(session.UserID, recipeID))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", models.ErrAlreadyAssigned, recipeID)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		day, err = loadDay(ctx, tx, session.UserID, date)
		if err != nil {
			return err
		}

		now := s.now()
		if !day.Contains(recipeID) {
			day.RecipeIDs = append(day.RecipeIDs, recipeID)
		}
		day.UpdatedAt = now
		if err := repository.Save(ctx, tx, dayRef(session.UserID, date), day, true); err != nil {
			return err
		}

		entry := models.ScheduleIndexEntry{RecipeID: recipeID, Date: date, CreatedAt: now}
		return repository.Save(ctx, tx, indexRef(session.UserID, recipeID), entry, false)
	})
	if err != nil {
		return models.ScheduleDay{}, err
	}

	s.logger.Info("recipe assigned",
		zap.String("user_id", session.UserID),
		zap.String("recipe_id", recipeID),
		zap.String("date", date))
	return day, nil
}

// Unassign removes recipeID from date and frees it for another assignment.
func (s *Service) Unassign(ctx context.Context, session models.Session, date, recipeID string) error {
	if err := validateDate(date); err != nil {
		return err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var index models.ScheduleIndexEntry
		err := repository.Load(ctx, tx, indexRef(session.UserID, recipeID), &index)
		indexed := err == nil
		switch {
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return err
		case indexed && index.Date != date:
			return fmt.Errorf("%w: %s is planned on %s", models.ErrNotFound, recipeID, index.Date)
		}

		day, err := loadDay(ctx, tx, session.UserID, date)
		if err != nil {
			return err
		}
		if !indexed && !day.Contains(recipeID) {
			return fmt.Errorf("%w: %s is not planned on %s", models.ErrNotFound, recipeID, date)
		}

		if day.Contains(recipeID) {
			day.RecipeIDs = slices.DeleteFunc(day.RecipeIDs, func(id string) bool { return id == recipeID })
			day.UpdatedAt = s.now()
			if err := repository.Save(ctx, tx, dayRef(session.UserID, date), day, true); err != nil {
				return err
			}
		}
		if !indexed {
			s.logger.Debug("removed unindexed day membership",
				zap.String("user_id", session.UserID),
				zap.String("recipe_id", recipeID),
				zap.String("date", date))
			return nil
		}
		return tx.Delete(ctx, indexRef(session.UserID, recipeID))
	})
	if err != nil {
		return err
	}

	s.logger.Info("recipe unassigned",
		zap.String("user_id", session.UserID),
		zap.String("recipe_id", recipeID),
		zap.String("date", date))
	return nil
}

// Week returns the seven days of the week containing ref. Membership comes
// from the index; the stored day order is kept for ids it agrees with.
func (s *Service) Week(ctx context.Context, session models.Session, ref time.Time) ([]DayView, error) {
	week := WeekOf(ref)

	entries, err := ledger.ListEntries(ctx, s.store, session.UserID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.RecipeEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	index, err := loadIndex(ctx, s.store, session.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]DayView, 0, DaysPerWeek)
	for _, date := range week.Days() {
		key := date.Format(models.DateLayout)
		day, err := loadDay(ctx, s.store, session.UserID, key)
		if err != nil {
			return nil, err
		}

		view := DayView{Date: key, Label: DayLabel(date), Recipes: []models.RecipeEntry{}}
		for _, id := range membership(day, index) {
			if entry, ok := byID[id]; ok {
				view.Recipes = append(view.Recipes, entry)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Reconcile rewrites stored day lists so they match the index and drops index
// entries that point at deleted recipes.
func (s *Service) Reconcile(ctx context.Context, userID string) (ReconcileReport, error) {
	var report ReconcileReport
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		report = ReconcileReport{}

		index, err := loadIndex(ctx, tx, userID)
		if err != nil {
			return err
		}

		for recipeID := range index {
			_, err := tx.Get(ctx, recipeRef(userID, recipeID))
			switch {
			case errors.Is(err, models.ErrNotFound):
				if err := tx.Delete(ctx, indexRef(userID, recipeID)); err != nil {
					return err
				}
				delete(index, recipeID)
				report.IndexesDropped++
			case err != nil:
				return err
			}
		}

		docs, err := tx.List(ctx, userID, repository.CollectionScheduleDays)
		if err != nil {
			return err
		}
		days := make(map[string]models.ScheduleDay, len(docs))
		for _, doc := range docs {
			var day models.ScheduleDay
			if err := repository.Decode(doc.Fields, &day); err != nil {
				return err
			}
			day.Date = doc.ID
			days[doc.ID] = day
		}
		for _, date := range index {
			if _, ok := days[date]; !ok {
				days[date] = models.ScheduleDay{Date: date}
			}
		}

		now := s.now()
		for date, day := range days {
			want := membership(day, index)
			if slices.Equal(want, day.RecipeIDs) {
				continue
			}
			day.RecipeIDs = want
			day.UpdatedAt = now
			if err := repository.Save(ctx, tx, dayRef(userID, date), day, true); err != nil {
				return err
			}
			report.DaysUpdated++
		}
		return nil
	})
	if err != nil {
		return ReconcileReport{}, err
	}

	if report.Changed() {
		s.logger.Info("schedule reconciled",
			zap.String("user_id", userID),
			zap.Int("days_updated", report.DaysUpdated),
			zap.Int("indexes_dropped", report.IndexesDropped))
	}
	return report, nil
}

// membership returns the ids indexed on day.Date: stored ids first in their
// stored order, then indexed ids missing from the stored list, sorted.
func membership(day models.ScheduleDay, index map[string]string) []string {
	ids := make([]string, 0, len(day.RecipeIDs))
	seen := make(map[string]bool, len(day.RecipeIDs))
	for _, id := range day.RecipeIDs {
		if index[id] == day.Date && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	var missing []string
	for id, date := range index {
		if date == day.Date && !seen[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return append(ids, missing...)
}

func loadDay(ctx context.Context, store repository.Store, userID, date string) (models.ScheduleDay, error) {
	var day models.ScheduleDay
	err := repository.Load(ctx, store, dayRef(userID, date), &day)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.ScheduleDay{Date: date}, nil
	case err != nil:
		return models.ScheduleDay{}, err
	}
	day.Date = date
	return day, nil
}

// loadIndex maps recipe id to assigned date.
func loadIndex(ctx context.Context, store repository.Store, userID string) (map[string]string, error) {
	docs, err := store.List(ctx, userID, repository.CollectionScheduleIndex)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(docs))
	for _, doc := range docs {
		var entry models.ScheduleIndexEntry
		if err := repository.Decode(doc.Fields, &entry); err != nil {
			return nil, err
		}
		index[doc.ID] = entry.Date
	}
	return index, nil
}
