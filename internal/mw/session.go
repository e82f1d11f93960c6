package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"firext-backend/internal/auth"
)

// CookieStorage keeps the session token in a cookie named auth.StorageKey.
// A bearer token in the Authorization header is also accepted on read.
type CookieStorage struct {
	c      *gin.Context
	secure bool
}

// NewCookieStorage binds storage to one request.
func NewCookieStorage(c *gin.Context, secure bool) *CookieStorage {
	return &CookieStorage{c: c, secure: secure}
}

func (s *CookieStorage) Get(key string) (string, bool) {
	if h := s.c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), true
	}
	v, err := s.c.Cookie(key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *CookieStorage) Set(key, value string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, 0, "/", "", s.secure, true)
}

func (s *CookieStorage) Remove(key string) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, "", -1, "/", "", s.secure, true)
}

// RequireSession rejects requests without a valid session token.
func RequireSession(a *auth.Authenticator, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.NewSession(a, NewCookieStorage(c, secure)).IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
