package profile

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
	"github.com/mamadbah2/saveeat/internal/repository/sqlite"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newTestStore(t), nil)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("EmptyDefaults", func(t *testing.T) {
		p, err := svc.PromptContext(ctx, "nobody")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.Firstname != DefaultFirstname || p.Goal != DefaultGoal {
			t.Errorf("Expected defaults, got %+v", p)
		}
		if p.Allergies == nil || len(p.Allergies) != 0 {
			t.Errorf("Expected empty allergy list, got %v", p.Allergies)
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		in := models.Profile{Firstname: " Awa ", Goal: "Perdre du poids", Height: 168, Weight: 61.5, Allergies: []string{"arachide", " ", "lait"}}
		if _, err := svc.Save(ctx, "u1", in); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		got, err := svc.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		want := models.Profile{Firstname: "Awa", Goal: "Perdre du poids", Height: 168, Weight: 61.5, Allergies: []string{"arachide", "lait"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %+v, got %+v", want, got)
		}
	})

	t.Run("ClearsMetrics", func(t *testing.T) {
		if _, err := svc.Save(ctx, "u2", models.Profile{Height: 175, Weight: 70}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, err := svc.Save(ctx, "u2", models.Profile{Height: 175}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		got, err := svc.Get(ctx, "u2")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got.Height != 175 || got.Weight != 0 {
			t.Errorf("Expected height 175 and weight cleared, got %+v", got)
		}
	})

	t.Run("RejectsNegativeMetrics", func(t *testing.T) {
		if _, err := svc.Save(ctx, "u1", models.Profile{Weight: -1}); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Expected ErrValidation, got %v", err)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewService(store, nil)

	for _, userID := range []string{"u1", "u2"} {
		for _, collection := range repository.UserCollections {
			for _, id := range []string{"a", "b"} {
				ref := repository.Ref{UserID: userID, Collection: collection, ID: id}
				if err := store.Set(ctx, ref, repository.Fields{"value": id}, false); err != nil {
					t.Fatalf("seed %s failed: %v", ref, err)
				}
			}
		}
	}

	if err := svc.DeleteAccount(ctx, "u1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, collection := range repository.UserCollections {
		docs, err := store.List(ctx, "u1", collection)
		if err != nil {
			t.Fatalf("list %s: %v", collection, err)
		}
		if len(docs) != 0 {
			t.Errorf("Expected %s to be empty, got %d documents", collection, len(docs))
		}

		others, err := store.List(ctx, "u2", collection)
		if err != nil {
			t.Fatalf("list %s: %v", collection, err)
		}
		if len(others) != 2 {
			t.Errorf("Expected u2 %s to keep 2 documents, got %d", collection, len(others))
		}
	}

	if err := svc.DeleteAccount(ctx, "u1"); err != nil {
		t.Errorf("Expected deleting an empty account to succeed, got %v", err)
	}
	if err := svc.DeleteAccount(ctx, " "); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
