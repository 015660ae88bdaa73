package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/service/planning"
)

type assignRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
}

// GetWeek returns the planning week containing ?date= (today by default).
func (h *Handler) GetWeek(c *gin.Context) {
	ref := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, ref.Location())
		if err != nil {
			h.abortWithError(c, fmt.Errorf("%w: invalid date %q", models.ErrValidation, raw))
			return
		}
		ref = parsed
	}

	days, err := h.svc.Planning.Week(c.Request.Context(), sessionFrom(c), ref)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	week := planning.WeekOf(ref)
	c.JSON(http.StatusOK, gin.H{
		"weekStart": week.Start.Format(models.DateLayout),
		"previous":  week.Prev().Start.Format(models.DateLayout),
		"next":      week.Next().Start.Format(models.DateLayout),
		"today":     planning.WeekOf(h.now()).Start.Format(models.DateLayout),
		"days":      days,
	})
}

// ListAvailable returns the recipes that can still be planned.
func (h *Handler) ListAvailable(c *gin.Context) {
	entries, err := h.svc.Planning.ListAvailable(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": entries})
}

// AssignRecipe plans a recipe on a day.
func (h *Handler) AssignRecipe(c *gin.Context) {
	var req assignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	day, err := h.svc.Planning.Assign(c.Request.Context(), sessionFrom(c), c.Param("date"), req.RecipeID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// UnassignRecipe removes a recipe from a day.
func (h *Handler) UnassignRecipe(c *gin.Context) {
	if err := h.svc.Planning.Unassign(c.Request.Context(), sessionFrom(c), c.Param("date"), c.Param("recipeId")); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
