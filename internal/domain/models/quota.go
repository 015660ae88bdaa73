package models

import "time"

// FreeWeeklyLimit is the number of recipe generations a free account gets per week.
const FreeWeeklyLimit = 3

// QuotaState is stored under subscription/limits for free accounts.
type QuotaState struct {
	RecipesThisWeek int        `json:"recipesThisWeek"`
	LastReset       *time.Time `json:"lastReset,omitempty"`
}

// QuotaResult is returned by every quota check.
// Remaining is -1 for Premium accounts (unlimited).
type QuotaResult struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}
