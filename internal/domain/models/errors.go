package models

import "errors"

// Error taxonomy shared by every service. Callers match with errors.Is and the
// HTTP layer turns each one into a fixed user-facing message.
var (
	// ErrValidation indicates missing or invalid user input.
	ErrValidation = errors.New("validation failed")
	// ErrQuotaExceeded indicates the free-tier weekly generation cap was reached.
	ErrQuotaExceeded = errors.New("weekly recipe quota exceeded")
	// ErrAlreadyAssigned indicates the recipe is already scheduled on a day.
	ErrAlreadyAssigned = errors.New("recipe already assigned to a day")
	// ErrNotFound indicates the referenced recipe, day or document is missing.
	ErrNotFound = errors.New("not found")
	// ErrExternalService indicates the document store or text generator failed.
	ErrExternalService = errors.New("external service failure")
	// ErrPremiumRequired indicates the feature is reserved to Premium accounts.
	ErrPremiumRequired = errors.New("premium subscription required")
)
