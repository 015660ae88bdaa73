package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar date key used for schedule days (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// DefaultRecipeTitle is used when the generated text has no usable first line.
const DefaultRecipeTitle = "Recette sans titre"

// Duration is the "best-before" choice made when a recipe is saved.
type Duration string

const (
	DurationTomorrow  Duration = "Demain"
	DurationTwoDays   Duration = "Dans 2 jours"
	DurationThreeDays Duration = "Dans 3 jours"
	DurationOneWeek   Duration = "Dans 1 semaine"
	DurationTwoWeeks  Duration = "Dans 2 semaines"
)

var durationOffsets = map[Duration]int{
	DurationTomorrow:  1,
	DurationTwoDays:   2,
	DurationThreeDays: 3,
	DurationOneWeek:   7,
	DurationTwoWeeks:  14,
}

// Durations lists the recognized choices in display order.
func Durations() []Duration {
	return []Duration{DurationTomorrow, DurationTwoDays, DurationThreeDays, DurationOneWeek, DurationTwoWeeks}
}

// OffsetDays returns the number of days the duration adds to the creation date.
func (d Duration) OffsetDays() (int, bool) {
	days, ok := durationOffsets[d]
	return days, ok
}

// RecipeEntry is a saved recipe in the user's ledger (recipes collection).
type RecipeEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Ingredient string    `json:"ingredient"`
	FullRecipe string    `json:"fullRecipe"`
	ExpiryDate time.Time `json:"expiryDate"`
	Favorite   bool      `json:"favorite"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryEntry is the retention copy written alongside every RecipeEntry.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Ingredient  string    `json:"ingredient"`
	FullRecipe  string    `json:"fullRecipe"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// TitleFromText derives a recipe title from the first line of generated text.
func TitleFromText(text string) string {
	firstLine, _, _ := strings.Cut(text, "\n")
	title := strings.TrimSpace(strings.ReplaceAll(firstLine, "#", ""))
	if title == "" {
		return DefaultRecipeTitle
	}
	return title
}
