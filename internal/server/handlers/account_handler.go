package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/profile"
)

type subscriptionRequest struct {
	Premium *bool `json:"premium" binding:"required"`
}

// GetProfile returns the caller profile.
func (h *Handler) GetProfile(c *gin.Context) {
	session := sessionFrom(c)
	p, err := h.svc.Profile.Get(c.Request.Context(), session.UserID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PutProfile replaces the caller profile.
func (h *Handler) PutProfile(c *gin.Context) {
	var req models.Profile
	if !h.bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Profile.Save(c.Request.Context(), sessionFrom(c).UserID, req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetGoals returns the BMI and the advice for the caller goal.
func (h *Handler) GetGoals(c *gin.Context) {
	p, err := h.svc.Profile.Get(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile.Summarize(p.Height, p.Weight, p.Goal))
}

// DeleteAccount purges every document of the caller.
func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.svc.Profile.DeleteAccount(c.Request.Context(), sessionFrom(c).UserID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSubscription returns the caller tier and quota.
func (h *Handler) GetSubscription(c *gin.Context) {
	session := sessionFrom(c)
	q, err := h.svc.Quota.Status(c.Request.Context(), session)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPremium": session.Premium, "quota": q})
}

// PutSubscription switches the caller tier.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sub, err := h.svc.Subscription.SetPremium(c.Request.Context(), sessionFrom(c).UserID, *req.Premium)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GetQuota returns the remaining generations for the week.
func (h *Handler) GetQuota(c *gin.Context) {
	q, err := h.svc.Quota.Status(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
