package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the shared password and stores a session token cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	if !h.sessionFor(c).Login(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	h.sessionFor(c).Logout()
	c.Status(http.StatusNoContent)
}

// GetSession reports whether the caller holds a valid session.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": h.sessionFor(c).IsAuthenticated()})
}
