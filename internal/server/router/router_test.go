package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository/sqlite"
	"github.com/mamadbah2/saveeat/internal/server/handlers"
	"github.com/mamadbah2/saveeat/internal/service/chat"
	"github.com/mamadbah2/saveeat/internal/service/cookmode"
	"github.com/mamadbah2/saveeat/internal/service/generation"
	"github.com/mamadbah2/saveeat/internal/service/ledger"
	"github.com/mamadbah2/saveeat/internal/service/planning"
	"github.com/mamadbah2/saveeat/internal/service/profile"
	"github.com/mamadbah2/saveeat/internal/service/quota"
	"github.com/mamadbah2/saveeat/internal/service/subscription"
	"github.com/mamadbah2/saveeat/pkg/clients/anthropic"
)

type stubGenerator struct{}

func (stubGenerator) Complete(_ context.Context, _ anthropic.Request) (string, error) {
	return "## Gratin de courgettes\nTemps : 35 min\n### Ingrédients\n- Courgettes\n### Préparation\n1. Enfourner.", nil
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store, err := sqlite.NewStore(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })

	quotaSvc := quota.NewService(store, time.UTC, nil)
	quotaSvc.SetClock(func() time.Time { return time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC) })
	profiles := profile.NewService(store, nil)

	h := handlers.NewHandler(handlers.Services{
		Subscription: subscription.NewService(store, nil),
		Profile:      profiles,
		Quota:        quotaSvc,
		Generation:   generation.NewService(quotaSvc, profiles, stubGenerator{}, false, nil),
		Ledger:       ledger.NewService(store, time.UTC, nil),
		Planning:     planning.NewService(store, time.UTC, nil),
		CookMode:     cookmode.NewService(store, nil),
		Chat:         chat.NewService(store, profiles, stubGenerator{}, nil),
	}, time.UTC, nil)

	return New(h, nil)
}

func do(t *testing.T, engine *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(handlers.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

func TestHealthz(t *testing.T) {
	engine := newTestEngine(t)
	if rec := do(t, engine, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestAuthentication(t *testing.T) {
	engine := newTestEngine(t)

	rec := do(t, engine, http.MethodGet, "/v1/quota", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without user header, got %d", rec.Code)
	}

	rec = do(t, engine, http.MethodGet, "/v1/favorites", "free", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for a free account, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != handlers.MsgPremiumRequired {
		t.Errorf("Expected premium message, got '%s'", msg)
	}
}

func TestGenerateQuota(t *testing.T) {
	engine := newTestEngine(t)

	for i := 0; i < models.FreeWeeklyLimit; i++ {
		rec := do(t, engine, http.MethodPost, "/v1/recipes/generate", "u1", map[string]string{"ingredient": "courgette"})
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, engine, http.MethodPost, "/v1/recipes/generate", "u1", map[string]string{"ingredient": "courgette"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != handlers.MsgQuotaExceeded {
		t.Errorf("Expected quota message, got '%s'", msg)
	}

	rec = do(t, engine, http.MethodPost, "/v1/recipes/generate", "u1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty request, got %d", rec.Code)
	}
}

func TestPlanningFlow(t *testing.T) {
	engine := newTestEngine(t)

	if rec := do(t, engine, http.MethodPut, "/v1/subscription", "p1", map[string]bool{"premium": true}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 upgrading, got %d", rec.Code)
	}

	rec := do(t, engine, http.MethodPost, "/v1/recipes", "p1", map[string]string{
		"recipe":   "## Gratin\n### Ingrédients\n- Courgettes",
		"duration": string(models.DurationTwoDays),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var entry models.RecipeEntry
	decode(t, rec, &entry)
	if entry.Title != "Gratin" {
		t.Errorf("Expected title 'Gratin', got '%s'", entry.Title)
	}

	rec = do(t, engine, http.MethodPost, "/v1/recipes", "p1", map[string]string{"recipe": "x", "duration": "Jamais"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown duration, got %d", rec.Code)
	}

	assign := "/v1/schedule/days/2025-10-13/recipes"
	if rec := do(t, engine, http.MethodPost, assign, "p1", map[string]string{"recipe_id": entry.ID}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 assigning, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodPost, "/v1/schedule/days/2025-10-14/recipes", "p1", map[string]string{"recipe_id": entry.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != handlers.MsgAlreadyAssigned {
		t.Errorf("Expected already-assigned message, got '%s'", msg)
	}

	rec = do(t, engine, http.MethodGet, "/v1/schedule/week?date=2025-10-15", "p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var week struct {
		WeekStart string             `json:"weekStart"`
		Next      string             `json:"next"`
		Days      []planning.DayView `json:"days"`
	}
	decode(t, rec, &week)
	if week.WeekStart != "2025-10-13" || week.Next != "2025-10-20" {
		t.Errorf("Unexpected week bounds: %s / %s", week.WeekStart, week.Next)
	}
	if len(week.Days) != 7 || len(week.Days[0].Recipes) != 1 {
		t.Fatalf("Expected Monday to hold the recipe, got %+v", week.Days)
	}

	if rec := do(t, engine, http.MethodGet, "/v1/schedule/week?date=15-10-2025", "p1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed date, got %d", rec.Code)
	}

	if rec := do(t, engine, http.MethodDelete, assign+"/"+entry.ID, "p1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 unassigning, got %d", rec.Code)
	}
	if rec := do(t, engine, http.MethodDelete, assign+"/"+entry.ID, "p1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second unassign, got %d", rec.Code)
	}

	rec = do(t, engine, http.MethodGet, "/v1/recipes/"+entry.ID+"/cook", "p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for cook mode, got %d", rec.Code)
	}
	var view cookmode.View
	decode(t, rec, &view)
	if len(view.Ingredients) != 1 || view.Ingredients[0] != "Courgettes" {
		t.Errorf("Unexpected cook-mode ingredients: %v", view.Ingredients)
	}

	if rec := do(t, engine, http.MethodPost, "/v1/recipes/"+entry.ID+"/done", "p1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 marking done, got %d", rec.Code)
	}
	if rec := do(t, engine, http.MethodGet, "/v1/recipes/"+entry.ID, "p1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after done, got %d", rec.Code)
	}
}

func TestListRecipesStats(t *testing.T) {
	engine := newTestEngine(t)

	for _, d := range []models.Duration{models.DurationTomorrow, models.DurationTwoWeeks} {
		body := map[string]string{"recipe": "Plat", "duration": string(d)}
		if rec := do(t, engine, http.MethodPost, "/v1/recipes", "u1", body); rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d", rec.Code)
		}
	}

	rec := do(t, engine, http.MethodGet, "/v1/recipes", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Recipes []struct {
			Tier string `json:"tier"`
		} `json:"recipes"`
		Stats struct {
			Urgent   int `json:"urgent"`
			ThisWeek int `json:"thisWeek"`
			Total    int `json:"total"`
		} `json:"stats"`
	}
	decode(t, rec, &body)
	if body.Stats.Total != 2 || body.Stats.Urgent != 1 || body.Stats.ThisWeek != 2 {
		t.Errorf("Unexpected stats: %+v", body.Stats)
	}
	if len(body.Recipes) != 2 || body.Recipes[0].Tier != "urgent" || body.Recipes[1].Tier != "ok" {
		t.Errorf("Unexpected tiers: %+v", body.Recipes)
	}
}

func TestProfileGoals(t *testing.T) {
	engine := newTestEngine(t)

	rec := do(t, engine, http.MethodPut, "/v1/profile", "u1", models.Profile{Firstname: "Awa", Goal: profile.GoalWeightLoss, Height: 170, Weight: 80})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodGet, "/v1/profile/goals", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var goals profile.Goals
	decode(t, rec, &goals)
	if goals.BMI != 27.7 || goals.Category != profile.BMIOverweight {
		t.Errorf("Expected BMI 27.7 (Surpoids), got %+v", goals)
	}
	if len(goals.Advice) != 3 {
		t.Errorf("Expected 3 advice lines, got %v", goals.Advice)
	}
}

type historyBody struct {
	History []models.HistoryEntry `json:"history"`
}

func TestHistorySearch(t *testing.T) {
	engine := newTestEngine(t)

	for _, title := range []string{"Soupe de carottes", "Omelette"} {
		body := map[string]string{"title": title, "recipe": title, "duration": string(models.DurationTomorrow)}
		if rec := do(t, engine, http.MethodPost, "/v1/recipes", "u1", body); rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d", rec.Code)
		}
	}

	var body historyBody
	decode(t, do(t, engine, http.MethodGet, "/v1/history?q=CAROTTE", "u1", nil), &body)
	if len(body.History) != 1 || body.History[0].Title != "Soupe de carottes" {
		t.Errorf("Expected only the soup, got %+v", body.History)
	}
}

func TestDeleteAccount(t *testing.T) {
	engine := newTestEngine(t)

	if rec := do(t, engine, http.MethodPut, "/v1/subscription", "u1", map[string]bool{"premium": true}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := map[string]string{"recipe": "Plat", "duration": string(models.DurationTomorrow)}
	if rec := do(t, engine, http.MethodPost, "/v1/recipes", "u1", body); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	rec := do(t, engine, http.MethodDelete, "/v1/account", "u1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodGet, "/v1/favorites", "u1", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected the Premium flag to be gone, got %d", rec.Code)
	}
	var history historyBody
	decode(t, do(t, engine, http.MethodGet, "/v1/history", "u1", nil), &history)
	if len(history.History) != 0 {
		t.Errorf("Expected empty history, got %+v", history.History)
	}
}
