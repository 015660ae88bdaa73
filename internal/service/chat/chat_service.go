package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
	"github.com/mamadbah2/saveeat/internal/service/profile"
	"github.com/mamadbah2/saveeat/pkg/clients/anthropic"
)

const (
	// ContextMessages is how many previous messages are sent with a question.
	ContextMessages = 20

	maxReplyTokens = 700
	welcomeID      = "welcome"
	welcomeText    = "Salut 👋 Je suis le Save Eat Bot 🤖🥗\nDis-moi ce que tu as chez toi, ton objectif, et je t'aide !"

	// FailureReply is stored when the generator cannot be reached.
	FailureReply = "Oups 😕 Erreur de connexion à l'IA. Réessaie dans un instant."
	// EmptyReply is stored when the generator answers with no text.
	EmptyReply = "Désolé, je n'ai pas pu répondre. Réessaie 🙏"
)

// TextGenerator produces the assistant reply.
type TextGenerator interface {
	Complete(ctx context.Context, req anthropic.Request) (string, error)
}

// Service is the Premium nutrition assistant.
type Service struct {
	store     repository.Store
	profiles  *profile.Service
	generator TextGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new chat service. A nil generator disables replies.
func NewService(store repository.Store, profiles *profile.Service, generator TextGenerator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		profiles:  profiles,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// History returns the conversation in creation order, or a welcome message
// when it is empty.
func (s *Service) History(ctx context.Context, session models.Session) ([]models.ChatMessage, error) {
	if !session.Premium {
		return nil, models.ErrPremiumRequired
	}

	messages, err := s.load(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return []models.ChatMessage{{
			ID:        welcomeID,
			Role:      models.ChatRoleAssistant,
			Content:   welcomeText,
			CreatedAt: s.now(),
		}}, nil
	}
	return messages, nil
}

// Send stores the question, asks the generator with the recent conversation
// and stores the reply.
func (s *Service) Send(ctx context.Context, session models.Session, text string) (models.ChatMessage, error) {
	if !session.Premium {
		return models.ChatMessage{}, models.ErrPremiumRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: message is empty", models.ErrValidation)
	}
	if s.generator == nil {
		return models.ChatMessage{}, fmt.Errorf("%w: text generation is not configured", models.ErrExternalService)
	}

	p, err := s.profiles.PromptContext(ctx, session.UserID)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("load profile: %w", err)
	}
	previous, err := s.load(ctx, session.UserID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	question, err := s.save(ctx, session.UserID, models.ChatRoleUser, text)
	if err != nil {
		return models.ChatMessage{}, err
	}

	req := anthropic.Request{System: systemPrompt(p), MaxTokens: maxReplyTokens}
	for _, m := range recent(previous) {
		req.Messages = append(req.Messages, anthropic.Message{Role: string(m.Role), Text: m.Content})
	}
	req.Messages = append(req.Messages, anthropic.Message{Role: string(question.Role), Text: question.Content})

	reply, err := s.generator.Complete(ctx, req)
	if errors.Is(err, anthropic.ErrEmptyResponse) || (err == nil && strings.TrimSpace(reply) == "") {
		reply, err = EmptyReply, nil
	}
	if err != nil {
		// The question keeps an answer so the next request alternates roles.
		if _, saveErr := s.save(ctx, session.UserID, models.ChatRoleAssistant, FailureReply); saveErr != nil {
			s.logger.Error("failed to store chat failure reply", zap.String("user_id", session.UserID), zap.Error(saveErr))
		}
		return models.ChatMessage{}, fmt.Errorf("%w: chat reply: %w", models.ErrExternalService, err)
	}

	answer, err := s.save(ctx, session.UserID, models.ChatRoleAssistant, reply)
	if err != nil {
		return models.ChatMessage{}, err
	}

	s.logger.Debug("chat reply stored", zap.String("user_id", session.UserID), zap.Int("context", len(req.Messages)-1))
	return answer, nil
}

// recent keeps the last ContextMessages messages and drops leading assistant
// turns so the context opens with a question.
func recent(messages []models.ChatMessage) []models.ChatMessage {
	if len(messages) > ContextMessages {
		messages = messages[len(messages)-ContextMessages:]
	}
	for len(messages) > 0 && messages[0].Role == models.ChatRoleAssistant {
		messages = messages[1:]
	}
	return messages
}

func (s *Service) save(ctx context.Context, userID string, role models.ChatRole, content string) (models.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("generate message id: %w", err)
	}
	msg := models.ChatMessage{ID: id.String(), Role: role, Content: content, CreatedAt: s.now()}
	ref := repository.Ref{UserID: userID, Collection: repository.CollectionAIChat, ID: msg.ID}
	if err := repository.Save(ctx, s.store, ref, msg, false); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

func (s *Service) load(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	docs, err := s.store.List(ctx, userID, repository.CollectionAIChat)
	if err != nil {
		return nil, err
	}
	messages := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		var msg models.ChatMessage
		if err := repository.Decode(doc.Fields, &msg); err != nil {
			return nil, err
		}
		msg.ID = doc.ID
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func systemPrompt(p models.Profile) string {
	allergies := "Aucune allergie connue."
	if len(p.Allergies) > 0 {
		allergies = fmt.Sprintf("Allergies à éviter strictement : %s.", strings.Join(p.Allergies, ", "))
	}
	return fmt.Sprintf(`Tu es le Save Eat Bot : un coach nutrition et anti-gaspillage.
Réponds en français, de façon claire, simple et utile.

Contexte utilisateur :
- Prénom : %s
- Objectif : %s
- %s

Règles :
- Donne des réponses concrètes et actionnables.
- Si l'utilisateur demande une recette : structure-la proprement (Temps, Ingrédients, Étapes).
- Évite le blabla inutile.`, p.Firstname, p.Goal, allergies)
}
