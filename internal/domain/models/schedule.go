package models

import "time"

// ScheduleDay lists the recipes planned on one calendar date.
// Stored in scheduleDays with the date key as document id.
type ScheduleDay struct {
	Date      string    `json:"date"`
	RecipeIDs []string  `json:"recipeIds"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contains reports whether the recipe is planned on this day.
func (d ScheduleDay) Contains(recipeID string) bool {
	for _, id := range d.RecipeIDs {
		if id == recipeID {
			return true
		}
	}
	return false
}

// ScheduleIndexEntry records the single date a recipe is assigned to.
// Stored in scheduleIndex with the recipe id as document id.
type ScheduleIndexEntry struct {
	RecipeID  string    `json:"recipeId"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}
