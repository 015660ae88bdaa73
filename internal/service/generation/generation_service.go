package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/profile"
	"github.com/mamadbah2/saveeat/internal/service/quota"
	"github.com/mamadbah2/saveeat/pkg/clients/anthropic"
)

const maxRecipeTokens = 950

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, req anthropic.Request) (string, error)
}

// Request is a generation request: an ingredient name, a photo, or both.
type Request struct {
	Ingredient string `json:"ingredient"`
	// Image is a base64 payload or data: URL.
	Image     string `json:"image,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Result is a generated recipe, not yet saved to the ledger.
type Result struct {
	Title      string             `json:"title"`
	Ingredient string             `json:"ingredient"`
	Recipe     string             `json:"recipe"`
	Quota      models.QuotaResult `json:"quota"`
}

// Service generates personalised recipes under the weekly quota.
type Service struct {
	quota           *quota.Service
	profiles        *profile.Service
	generator       TextGenerator
	refundOnFailure bool
	logger          *zap.Logger
}

// NewService wires a new generation service. A nil generator disables
// generation; every call then fails with ErrExternalService.
func NewService(quotaSvc *quota.Service, profiles *profile.Service, generator TextGenerator, refundOnFailure bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		quota:           quotaSvc,
		profiles:        profiles,
		generator:       generator,
		refundOnFailure: refundOnFailure,
		logger:          logger,
	}
}

// Generate checks the quota, builds the prompt from the user profile and asks
// the generator for one recipe. The quota unit is spent before the call.
func (s *Service) Generate(ctx context.Context, session models.Session, req Request) (Result, error) {
	req.Ingredient = strings.TrimSpace(req.Ingredient)
	if req.Ingredient == "" && req.Image == "" {
		return Result{}, fmt.Errorf("%w: an ingredient or an image is required", models.ErrValidation)
	}
	if s.generator == nil {
		return Result{}, fmt.Errorf("%w: text generation is not configured", models.ErrExternalService)
	}

	p, err := s.profiles.PromptContext(ctx, session.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("load profile: %w", err)
	}

	q, err := s.quota.CheckAndConsume(ctx, session)
	if err != nil {
		return Result{}, fmt.Errorf("check quota: %w", err)
	}
	if !q.Allowed {
		return Result{Quota: q}, models.ErrQuotaExceeded
	}

	text, err := s.generator.Complete(ctx, BuildRecipeRequest(p, req))
	if err != nil {
		s.refund(ctx, session)
		return Result{}, fmt.Errorf("%w: generate recipe: %w", models.ErrExternalService, err)
	}

	s.logger.Info("recipe generated",
		zap.String("user_id", session.UserID),
		zap.Bool("from_image", req.Image != ""),
		zap.Int("remaining", q.Remaining))

	return Result{
		Title:      models.TitleFromText(text),
		Ingredient: req.Ingredient,
		Recipe:     text,
		Quota:      q,
	}, nil
}

func (s *Service) refund(ctx context.Context, session models.Session) {
	if !s.refundOnFailure {
		return
	}
	if err := s.quota.Refund(ctx, session); err != nil {
		s.logger.Error("quota refund failed", zap.String("user_id", session.UserID), zap.Error(err))
	}
}

// AllergySentence renders the allergy constraint of a prompt.
func AllergySentence(allergies []string) string {
	if len(allergies) == 0 {
		return "Aucune allergie connue."
	}
	return fmt.Sprintf("Il est allergique à : %s. Ne jamais les inclure.", strings.Join(allergies, ", "))
}

// BuildRecipeRequest renders the system prompt and user turn for a recipe.
func BuildRecipeRequest(p models.Profile, req Request) anthropic.Request {
	system := fmt.Sprintf(`Tu es un chef nutritionniste expert.
Crée UNE recette personnalisée adaptée à ce profil :

Profil :
- Prénom : %s
- Objectif : %s
- Taille : %s cm
- Poids : %s kg
- Allergies : %s

Interdiction d'inclure un allergène.
Simple, faisable, quantités précises, saine.
Commence par "## <nom de la recette>", puis "Temps : <n> min", puis "### Ingrédients" et "### Préparation".`,
		p.Firstname, p.Goal, metric(p.Height), metric(p.Weight), AllergySentence(p.Allergies))

	msg := anthropic.Message{Role: "user"}
	switch {
	case req.Image != "":
		msg.Image = &anthropic.Image{MediaType: req.MediaType, Data: req.Image}
		msg.Text = "Analyse cette image et crée la recette."
		if req.Ingredient != "" {
			msg.Text += " Ingrédient principal : " + req.Ingredient
		}
	default:
		msg.Text = "Ingrédient principal : " + req.Ingredient
	}

	return anthropic.Request{
		System:    system,
		Messages:  []anthropic.Message{msg},
		MaxTokens: maxRecipeTokens,
	}
}

func metric(v float64) string {
	if v <= 0 {
		return "?"
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
