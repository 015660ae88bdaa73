package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/chat"
	"github.com/mamadbah2/saveeat/internal/service/cookmode"
	"github.com/mamadbah2/saveeat/internal/service/generation"
	"github.com/mamadbah2/saveeat/internal/service/ledger"
	"github.com/mamadbah2/saveeat/internal/service/planning"
	"github.com/mamadbah2/saveeat/internal/service/profile"
	"github.com/mamadbah2/saveeat/internal/service/quota"
	"github.com/mamadbah2/saveeat/internal/service/subscription"
)

// UserIDHeader carries the caller identity.
const UserIDHeader = "X-User-ID"

const sessionKey = "session"

// User-facing messages returned for each error kind.
const (
	MsgValidation      = "Informations manquantes ou invalides."
	MsgUnauthorized    = "Utilisateur non identifié."
	MsgPremiumRequired = "Cette fonctionnalité est réservée aux membres Premium."
	MsgNotFound        = "Élément introuvable."
	MsgAlreadyAssigned = "Cette recette est déjà assignée à un autre jour. Tu dois en regénérer une nouvelle."
	MsgQuotaExceeded   = "Vous avez déjà généré 3 recettes cette semaine. Passez à Premium pour des recettes illimitées."
	MsgExternalService = "Service momentanément indisponible. Réessaie dans un instant."
	MsgInternal        = "Une erreur inattendue est survenue."
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Subscription *subscription.Service
	Profile      *profile.Service
	Quota        *quota.Service
	Generation   *generation.Service
	Ledger       *ledger.Service
	Planning     *planning.Service
	CookMode     *cookmode.Service
	Chat         *chat.Service
}

// Handler adapts the domain services to gin.
type Handler struct {
	svc    Services
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler constructs the HTTP handler adapter. Dates without a time zone
// are read in loc.
func NewHandler(svc Services, loc *time.Location, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// Authenticate resolves the caller session from the X-User-ID header.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgUnauthorized})
			return
		}

		session, err := h.svc.Subscription.Session(c.Request.Context(), userID)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequirePremium rejects free accounts.
func (h *Handler) RequirePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessionFrom(c).Premium {
			h.abortWithError(c, models.ErrPremiumRequired)
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(models.Session); ok {
			return session
		}
	}
	return models.Session{}
}

// statusFor maps the error taxonomy to an HTTP status and message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, MsgValidation
	case errors.Is(err, models.ErrPremiumRequired):
		return http.StatusForbidden, MsgPremiumRequired
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, models.ErrAlreadyAssigned):
		return http.StatusConflict, MsgAlreadyAssigned
	case errors.Is(err, models.ErrQuotaExceeded):
		return http.StatusTooManyRequests, MsgQuotaExceeded
	case errors.Is(err, models.ErrExternalService), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, MsgExternalService
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *Handler) bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		h.logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgValidation})
		return false
	}
	return true
}
