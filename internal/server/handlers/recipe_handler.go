package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/generation"
	"github.com/mamadbah2/saveeat/internal/service/urgency"
)

type addRecipeRequest struct {
	Title      string          `json:"title"`
	Ingredient string          `json:"ingredient"`
	Recipe     string          `json:"recipe" binding:"required"`
	Duration   models.Duration `json:"duration" binding:"required"`
}

// GenerateRecipe asks for a new recipe under the weekly quota.
func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req generation.Request
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Generation.Generate(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AddRecipe saves a generated recipe with its best-before choice.
func (h *Handler) AddRecipe(c *gin.Context) {
	var req addRecipeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Ledger.AddEntry(c.Request.Context(), sessionFrom(c), req.Title, req.Ingredient, req.Recipe, req.Duration)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListRecipes returns the ledger with urgency badges and counters.
func (h *Handler) ListRecipes(c *gin.Context) {
	entries, err := h.svc.Ledger.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"recipes": urgency.Annotate(entries, now),
		"stats":   urgency.Summarize(entries, now),
	})
}

// GetRecipe returns one ledger entry.
func (h *Handler) GetRecipe(c *gin.Context) {
	entry, err := h.svc.Ledger.Get(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteRecipe removes an entry and frees its schedule slot.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	if err := h.svc.Ledger.Remove(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkDone removes a cooked recipe.
func (h *Handler) MarkDone(c *gin.Context) {
	if err := h.svc.Ledger.MarkDone(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFavorite flips the favorite flag.
func (h *Handler) ToggleFavorite(c *gin.Context) {
	entry, err := h.svc.Ledger.ToggleFavorite(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListFavorites returns the favorite entries.
func (h *Handler) ListFavorites(c *gin.Context) {
	entries, err := h.svc.Ledger.Favorites(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": entries})
}

// ListHistory sweeps expired copies and returns the rest, filtered by ?q=.
func (h *Handler) ListHistory(c *gin.Context) {
	entries, err := h.svc.Ledger.History(c.Request.Context(), sessionFrom(c), c.Query("q"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// CookMode returns the timer and checklists of a recipe.
func (h *Handler) CookMode(c *gin.Context) {
	view, err := h.svc.CookMode.Open(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
