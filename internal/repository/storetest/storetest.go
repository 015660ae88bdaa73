// Package storetest holds the behaviour every repository.Store must share.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

// Run exercises a store implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, repository.Ref{UserID: "u1", Collection: "recipes", ID: "nope"})
		if !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetMergeAndReplace", func(t *testing.T) {
		s := newStore(t)
		ref := repository.Ref{UserID: "u1", Collection: "subscription", ID: "status"}

		if err := s.Set(ctx, ref, repository.Fields{"isPremium": true, "note": "a"}, false); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if err := s.Set(ctx, ref, repository.Fields{"recipesThisWeek": float64(2)}, true); err != nil {
			t.Fatalf("merge failed: %v", err)
		}

		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		want := repository.Fields{"isPremium": true, "note": "a", "recipesThisWeek": float64(2)}
		if !reflect.DeepEqual(normalizeNumbers(got), want) {
			t.Errorf("Expected merged %v, got %v", want, got)
		}

		if err := s.Set(ctx, ref, repository.Fields{"isPremium": false}, false); err != nil {
			t.Fatalf("replace failed: %v", err)
		}
		got, err = s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(got) != 1 || got["isPremium"] != false {
			t.Errorf("Expected replaced document, got %v", got)
		}
	})

	t.Run("RoundTripStruct", func(t *testing.T) {
		s := newStore(t)
		ref := repository.Ref{UserID: "u1", Collection: "scheduleDays", ID: "2025-10-13"}
		day := models.ScheduleDay{Date: "2025-10-13", RecipeIDs: []string{"b", "a"}}

		if err := repository.Save(ctx, s, ref, day, false); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		var got models.ScheduleDay
		if err := repository.Load(ctx, s, ref, &got); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !reflect.DeepEqual(got.RecipeIDs, day.RecipeIDs) {
			t.Errorf("Expected %v, got %v", day.RecipeIDs, got.RecipeIDs)
		}
	})

	t.Run("ListDeleteUserIDs", func(t *testing.T) {
		s := newStore(t)
		for _, ref := range []repository.Ref{
			{UserID: "u1", Collection: "recipes", ID: "b"},
			{UserID: "u1", Collection: "recipes", ID: "a"},
			{UserID: "u2", Collection: "recipes", ID: "c"},
			{UserID: "u3", Collection: "history", ID: "d"},
		} {
			if err := s.Set(ctx, ref, repository.Fields{"title": ref.ID}, false); err != nil {
				t.Fatalf("set failed: %v", err)
			}
		}

		docs, err := s.List(ctx, "u1", "recipes")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
			t.Errorf("Expected [a b] ordered by id, got %+v", docs)
		}

		users, err := s.UserIDs(ctx, "recipes")
		if err != nil {
			t.Fatalf("user ids failed: %v", err)
		}
		if !reflect.DeepEqual(users, []string{"u1", "u2"}) {
			t.Errorf("Expected [u1 u2], got %v", users)
		}

		ref := repository.Ref{UserID: "u1", Collection: "recipes", ID: "a"}
		if err := s.Delete(ctx, ref); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := s.Delete(ctx, ref); err != nil {
			t.Fatalf("second delete should be a no-op, got %v", err)
		}
		if _, err := s.Get(ctx, ref); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("RunInTx", func(t *testing.T) {
		s := newStore(t)
		ref := repository.Ref{UserID: "u1", Collection: "scheduleIndex", ID: "r1"}

		err := s.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
			if err := tx.Set(ctx, ref, repository.Fields{"date": "2025-10-13"}, false); err != nil {
				return err
			}
			if _, err := tx.Get(ctx, ref); err != nil {
				return err
			}
			return tx.RunInTx(ctx, func(ctx context.Context, inner repository.Store) error {
				return inner.Set(ctx, ref, repository.Fields{"createdBy": "nested"}, true)
			})
		})
		if err != nil {
			t.Fatalf("Expected commit, got %v", err)
		}
		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got["createdBy"] != "nested" || got["date"] != "2025-10-13" {
			t.Errorf("Expected nested write committed, got %v", got)
		}
	})
}

// RunRollback checks that a failing transaction leaves no trace. Only stores
// with real transactions support it.
func RunRollback(t *testing.T, s repository.Store) {
	t.Helper()
	ctx := context.Background()
	ref := repository.Ref{UserID: "u1", Collection: "scheduleIndex", ID: "rollback"}
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Set(ctx, ref, repository.Fields{"date": "2025-10-13"}, false); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the callback error, got %v", err)
	}
	if _, err := s.Get(ctx, ref); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected rolled back write, got %v", err)
	}
}

// normalizeNumbers turns integer values into float64 so that stores decoding
// numbers differently compare equal.
func normalizeNumbers(f repository.Fields) repository.Fields {
	out := repository.Fields{}
	for k, v := range f {
		switch n := v.(type) {
		case int32:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case int:
			out[k] = float64(n)
		default:
			out[k] = v
		}
	}
	return out
}
