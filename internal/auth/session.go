package auth

import (
	"log"
	"sync"

	"github.com/patrickmn/go-cache"
)

// Storage is the client-local persistence a Session keeps its token in.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Session is the explicit authentication context handed to views.
type Session struct {
	auth    *Authenticator
	storage Storage
}

// NewSession binds an Authenticator to the caller's storage.
func NewSession(a *Authenticator, storage Storage) *Session {
	return &Session{auth: a, storage: storage}
}

// Login stores a token and returns true when pw is the shared password.
func (s *Session) Login(pw string) bool {
	if !s.auth.Check(pw) {
		return false
	}
	token, err := s.auth.Issue()
	if err != nil {
		log.Printf("Error issuing session token: %v", err)
		return false
	}
	s.storage.Set(StorageKey, token)
	return true
}

// Logout forgets the stored token.
func (s *Session) Logout() {
	s.storage.Remove(StorageKey)
}

// IsAuthenticated reports whether storage holds a valid token.
func (s *Session) IsAuthenticated() bool {
	token, ok := s.storage.Get(StorageKey)
	return ok && s.auth.Verify(token)
}

// Token returns the stored token, if any.
func (s *Session) Token() (string, bool) {
	return s.storage.Get(StorageKey)
}

// MemoryStorage is an in-process Storage backed by go-cache. Entries never expire.
type MemoryStorage struct {
	once  sync.Once
	items *cache.Cache
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStorage) cache() *cache.Cache {
	m.once.Do(func() {
		if m.items == nil {
			m.items = cache.New(cache.NoExpiration, 0)
		}
	})
	return m.items
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	v, ok := m.cache().Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.cache().Set(key, value, cache.NoExpiration)
}

func (m *MemoryStorage) Remove(key string) {
	m.cache().Delete(key)
}
