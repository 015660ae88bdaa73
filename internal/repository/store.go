package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names used under each user.
const (
	CollectionProfile       = "profile"
	CollectionBody          = "body"
	CollectionAllergies     = "allergies"
	CollectionSubscription  = "subscription"
	CollectionRecipes       = "recipes"
	CollectionHistory       = "history"
	CollectionScheduleDays  = "scheduleDays"
	CollectionScheduleIndex = "scheduleIndex"
	CollectionAIChat        = "aiChat"
)

// UserCollections lists every collection a user owns.
var UserCollections = []string{
	CollectionProfile,
	CollectionBody,
	CollectionAllergies,
	CollectionSubscription,
	CollectionRecipes,
	CollectionHistory,
	CollectionScheduleDays,
	CollectionScheduleIndex,
	CollectionAIChat,
}

// Fields is the content of a stored document.
type Fields map[string]any

// Ref addresses a single document owned by a user.
type Ref struct {
	UserID     string
	Collection string
	ID         string
}

func (r Ref) String() string {
	return fmt.Sprintf("users/%s/%s/%s", r.UserID, r.Collection, r.ID)
}

// Document is a listed document with its id.
type Document struct {
	ID     string
	Fields Fields
}

// Store is the document store collaborator. Reads and writes are whole
// documents; Set with merge overlays the given fields and leaves the rest.
// Get returns models.ErrNotFound for missing documents, Delete is idempotent.
type Store interface {
	Get(ctx context.Context, ref Ref) (Fields, error)
	Set(ctx context.Context, ref Ref, fields Fields, merge bool) error
	Delete(ctx context.Context, ref Ref) error
	List(ctx context.Context, userID, collection string) ([]Document, error)
	UserIDs(ctx context.Context, collection string) ([]string, error)
	// RunInTx applies every write made through tx together or not at all.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close(ctx context.Context) error
}

// Encode converts a domain value into document fields.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return fields, nil
}

// Decode fills out from document fields.
func Decode(fields Fields, out any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Load reads the document at ref into out.
func Load(ctx context.Context, s Store, ref Ref, out any) error {
	fields, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	return Decode(fields, out)
}

// Save encodes v and writes it at ref.
func Save(ctx context.Context, s Store, ref Ref, v any, merge bool) error {
	fields, err := Encode(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, ref, fields, merge)
}

// MergeFields overlays src onto dst and returns dst.
func MergeFields(dst, src Fields) Fields {
	if dst == nil {
		dst = Fields{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
