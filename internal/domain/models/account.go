package models

import "time"

// Session carries the caller identity and tier into every service call.
type Session struct {
	UserID  string
	Premium bool
}

// Subscription is stored under subscription/status.
type Subscription struct {
	IsPremium bool      `json:"isPremium"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile aggregates the profile, body metrics and allergy documents
// consumed when building generation prompts.
type Profile struct {
	Firstname string   `json:"firstname"`
	Goal      string   `json:"goal"`
	Height    float64  `json:"height"`
	Weight    float64  `json:"weight"`
	Allergies []string `json:"allergies"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the Premium assistant conversation (aiChat collection).
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
