package urgency

import (
	"testing"
	"time"

	"github.com/mamadbah2/saveeat/internal/domain/models"
)

func TestDaysLeft(t *testing.T) {
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   int
	}{
		{"TwoDays", now.Add(48 * time.Hour), 2},
		{"PartialDayRoundsUp", now.Add(25 * time.Hour), 2},
		{"OneHour", now.Add(time.Hour), 1},
		{"Now", now, 0},
		{"YesterdayExpired", now.Add(-24 * time.Hour), -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysLeft(tc.expiry, now); got != tc.want {
				t.Errorf("Expected %d days left, got %d", tc.want, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		days  int
		tier  Tier
		label string
	}{
		{-1, TierUrgent, ExpiredLabel},
		{0, TierUrgent, ExpiredLabel},
		{1, TierUrgent, "1j restants"},
		{3, TierUrgent, "3j restants"},
		{4, TierSoon, "4j restants"},
		{7, TierSoon, "7j restants"},
		{8, TierOK, "8j restants"},
		{14, TierOK, "14j restants"},
	}

	for _, tc := range tests {
		if got := Classify(tc.days); got != tc.tier {
			t.Errorf("Classify(%d): expected %s, got %s", tc.days, tc.tier, got)
		}
		if got := Label(tc.days); got != tc.label {
			t.Errorf("Label(%d): expected '%s', got '%s'", tc.days, tc.label, got)
		}
	}

	if TierUrgent.Color() != "red" || TierSoon.Color() != "orange" || TierOK.Color() != "green" {
		t.Error("Expected red/orange/green tier colors")
	}
}

func TestSummarize(t *testing.T) {
	// Wednesday; the week started on Monday 2025-10-13.
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	entries := []models.RecipeEntry{
		{ID: "expired", CreatedAt: now.AddDate(0, 0, -10), ExpiryDate: now.AddDate(0, 0, -1)},
		{ID: "urgent", CreatedAt: now.AddDate(0, 0, -1), ExpiryDate: now.AddDate(0, 0, 2)},
		{ID: "soon", CreatedAt: time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), ExpiryDate: now.AddDate(0, 0, 5)},
		{ID: "ok", CreatedAt: time.Date(2025, 10, 12, 23, 59, 0, 0, time.UTC), ExpiryDate: now.AddDate(0, 0, 12)},
	}

	stats := Summarize(entries, now)
	if stats.Total != 4 {
		t.Errorf("Expected total 4, got %d", stats.Total)
	}
	if stats.Urgent != 2 {
		t.Errorf("Expected 2 urgent (including expired), got %d", stats.Urgent)
	}
	if stats.ThisWeek != 2 {
		t.Errorf("Expected 2 created this week, got %d", stats.ThisWeek)
	}

	items := Annotate(entries, now)
	if !items[0].Expired || items[0].Label != ExpiredLabel {
		t.Errorf("Expected first entry to be marked expired, got %+v", items[0])
	}
	if items[2].Tier != TierSoon {
		t.Errorf("Expected 'soon' tier, got %s", items[2].Tier)
	}
}
