package generation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository/sqlite"
	"github.com/mamadbah2/saveeat/internal/service/profile"
	"github.com/mamadbah2/saveeat/internal/service/quota"
	"github.com/mamadbah2/saveeat/pkg/clients/anthropic"
)

type fakeGenerator struct {
	text     string
	err      error
	requests []anthropic.Request
}

func (f *fakeGenerator) Complete(_ context.Context, req anthropic.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.text, f.err
}

func newTestService(t *testing.T, gen TextGenerator, refund bool) (*Service, *quota.Service, *profile.Service) {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	quotaSvc := quota.NewService(store, time.UTC, nil)
	// Thursday; the quota also resets on every Monday check.
	quotaSvc.SetClock(func() time.Time { return time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC) })
	profiles := profile.NewService(store, nil)
	return NewService(quotaSvc, profiles, gen, refund, nil), quotaSvc, profiles
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{text: "## Curry de lentilles\nTemps : 25 min"}
	svc, _, profiles := newTestService(t, gen, false)

	if _, err := profiles.Save(ctx, "u1", models.Profile{Firstname: "Awa", Goal: "Prendre du muscle", Height: 170, Allergies: []string{"arachide"}}); err != nil {
		t.Fatalf("seed profile failed: %v", err)
	}

	res, err := svc.Generate(ctx, models.Session{UserID: "u1"}, Request{Ingredient: " lentilles "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Title != "Curry de lentilles" {
		t.Errorf("Expected title 'Curry de lentilles', got '%s'", res.Title)
	}
	if res.Ingredient != "lentilles" {
		t.Errorf("Expected trimmed ingredient, got '%s'", res.Ingredient)
	}
	if !res.Quota.Allowed || res.Quota.Remaining != models.FreeWeeklyLimit-1 {
		t.Errorf("Expected one unit consumed, got %+v", res.Quota)
	}

	if len(gen.requests) != 1 {
		t.Fatalf("Expected 1 generator call, got %d", len(gen.requests))
	}
	system := gen.requests[0].System
	for _, want := range []string{"Awa", "Prendre du muscle", "170 cm", "Poids : ? kg", "arachide"} {
		if !strings.Contains(system, want) {
			t.Errorf("Expected system prompt to contain %q", want)
		}
	}
	if msg := gen.requests[0].Messages[0]; msg.Text != "Ingrédient principal : lentilles" || msg.Image != nil {
		t.Errorf("Unexpected user message: %+v", msg)
	}
}

func TestGenerate_Image(t *testing.T) {
	gen := &fakeGenerator{text: "Salade"}
	svc, _, _ := newTestService(t, gen, false)

	if _, err := svc.Generate(context.Background(), models.Session{UserID: "u1", Premium: true}, Request{Image: "aGVsbG8=", MediaType: "image/png"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	msg := gen.requests[0].Messages[0]
	if msg.Image == nil || msg.Image.Data != "aGVsbG8=" || msg.Image.MediaType != "image/png" {
		t.Errorf("Expected image to be forwarded, got %+v", msg.Image)
	}
	if !strings.Contains(gen.requests[0].System, "Aucune allergie connue.") {
		t.Error("Expected default allergy sentence")
	}
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		gen := &fakeGenerator{text: "x"}
		svc, _, _ := newTestService(t, gen, false)
		if _, err := svc.Generate(ctx, models.Session{UserID: "u1"}, Request{Ingredient: "  "}); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("Expected ErrValidation, got %v", err)
		}
		if len(gen.requests) != 0 {
			t.Error("Expected no generator call")
		}
	})

	t.Run("QuotaExceeded", func(t *testing.T) {
		gen := &fakeGenerator{text: "x"}
		svc, _, _ := newTestService(t, gen, false)

		var lastErr error
		for i := 0; i < models.FreeWeeklyLimit+1; i++ {
			_, lastErr = svc.Generate(ctx, models.Session{UserID: "u1"}, Request{Ingredient: "riz"})
		}
		if !errors.Is(lastErr, models.ErrQuotaExceeded) {
			t.Fatalf("Expected ErrQuotaExceeded, got %v", lastErr)
		}
	})

	t.Run("GeneratorFailureKeepsUnit", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		svc, quotaSvc, _ := newTestService(t, gen, false)
		session := models.Session{UserID: "u1"}

		_, err := svc.Generate(ctx, session, Request{Ingredient: "riz"})
		if !errors.Is(err, models.ErrExternalService) {
			t.Fatalf("Expected ErrExternalService, got %v", err)
		}
		status, err := quotaSvc.Status(ctx, session)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if status.Remaining != models.FreeWeeklyLimit-1 {
			t.Errorf("Expected the failed call to spend a unit, got %d remaining", status.Remaining)
		}
	})

	t.Run("GeneratorFailureRefunds", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		svc, quotaSvc, _ := newTestService(t, gen, true)
		session := models.Session{UserID: "u1"}

		if _, err := svc.Generate(ctx, session, Request{Ingredient: "riz"}); !errors.Is(err, models.ErrExternalService) {
			t.Fatalf("Expected ErrExternalService, got %v", err)
		}
		status, err := quotaSvc.Status(ctx, session)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if status.Remaining != models.FreeWeeklyLimit {
			t.Errorf("Expected the unit to be refunded, got %d remaining", status.Remaining)
		}
	})

	t.Run("NotConfigured", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil, false)
		if _, err := svc.Generate(ctx, models.Session{UserID: "u1"}, Request{Ingredient: "riz"}); !errors.Is(err, models.ErrExternalService) {
			t.Fatalf("Expected ErrExternalService, got %v", err)
		}
	})
}
