package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProjections returns the two LED lists the controller reads.
func (h *Handler) GetProjections(c *gin.Context) {
	ctx := c.Request.Context()

	expiring, err := h.store.ListExpiring(ctx)
	if err != nil {
		log.Printf("Error reading to_expire: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	reweigh, err := h.store.ListReweigh(ctx)
	if err != nil {
		log.Printf("Error reading for_reweigh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"to_expire":   expiring,
		"for_reweigh": reweigh,
	})
}

// GetNotifications returns the toasts currently on screen.
func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.Active())
}
