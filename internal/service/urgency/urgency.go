// Package urgency buckets ledger entries by how close they are to expiry.
package urgency

import (
	"fmt"
	"math"
	"time"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/planning"
)

// Tier is the display bucket of an entry.
type Tier string

const (
	TierUrgent Tier = "urgent"
	TierSoon   Tier = "soon"
	TierOK     Tier = "ok"
)

// Color returns the display color of the tier.
func (t Tier) Color() string {
	switch t {
	case TierUrgent:
		return "red"
	case TierSoon:
		return "orange"
	default:
		return "green"
	}
}

// ExpiredLabel replaces the day count once an entry has expired.
const ExpiredLabel = "Expirée !"

// DaysLeft returns ceil((expiry - now) / 24h).
func DaysLeft(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// Expired reports whether daysLeft marks an expired entry.
func Expired(daysLeft int) bool {
	return daysLeft <= 0
}

// Classify buckets a day count. Expired entries are urgent.
func Classify(daysLeft int) Tier {
	switch {
	case daysLeft <= 3:
		return TierUrgent
	case daysLeft <= 7:
		return TierSoon
	default:
		return TierOK
	}
}

// Label is the badge text shown next to an entry.
func Label(daysLeft int) string {
	if Expired(daysLeft) {
		return ExpiredLabel
	}
	return fmt.Sprintf("%dj restants", daysLeft)
}

// Item is an entry annotated with its urgency.
type Item struct {
	models.RecipeEntry
	DaysLeft int    `json:"daysLeft"`
	Tier     Tier   `json:"tier"`
	Color    string `json:"color"`
	Label    string `json:"label"`
	Expired  bool   `json:"expired"`
}

// Annotate computes the urgency of every entry at now.
func Annotate(entries []models.RecipeEntry, now time.Time) []Item {
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		days := DaysLeft(entry.ExpiryDate, now)
		tier := Classify(days)
		items = append(items, Item{
			RecipeEntry: entry,
			DaysLeft:    days,
			Tier:        tier,
			Color:       tier.Color(),
			Label:       Label(days),
			Expired:     Expired(days),
		})
	}
	return items
}

// Stats are the planning view counters.
type Stats struct {
	Urgent   int `json:"urgent"`
	ThisWeek int `json:"thisWeek"`
	Total    int `json:"total"`
}

// Summarize counts urgent entries, entries created since Monday 00:00 of
// now's week, and all entries.
func Summarize(entries []models.RecipeEntry, now time.Time) Stats {
	weekStart := planning.WeekStart(now)

	stats := Stats{Total: len(entries)}
	for _, entry := range entries {
		if Classify(DaysLeft(entry.ExpiryDate, now)) == TierUrgent {
			stats.Urgent++
		}
		if !entry.CreatedAt.Before(weekStart) {
			stats.ThisWeek++
		}
	}
	return stats
}
