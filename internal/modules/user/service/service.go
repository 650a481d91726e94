package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	postDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/user/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// Service handles team login and session state. Credentials are compared
// in plaintext against the configured team list; there is deliberately
// no stronger authentication layer in this tool.
type Service struct {
	passwords map[string]string

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// New creates a new user service from the configured team passwords
func New(passwords map[string]string) *Service {
	return &Service{
		passwords: passwords,
		sessions:  make(map[string]*domain.Session),
	}
}

// Login validates credentials and issues a session token
func (s *Service) Login(username, password string) (*domain.Session, error) {
	expected, ok := s.passwords[username]
	if !ok || expected != password {
		return nil, errors.ErrUnauthorized
	}

	session := &domain.Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session, nil
}

// Logout drops a session and its draft
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// GetSession resolves a session token
func (s *Service) GetSession(token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, errors.ErrInvalidSession
	}
	return session, nil
}

// SetDraft replaces the session's working draft with a freshly fetched post
func (s *Service) SetDraft(token string, draft *postDomain.FetchedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return errors.ErrInvalidSession
	}
	session.Draft = draft
	return nil
}

// Draft returns the session's working draft
func (s *Service) Draft(token string) (*postDomain.FetchedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, errors.ErrInvalidSession
	}
	if session.Draft == nil {
		return nil, errors.ErrNoDraft
	}
	return session.Draft, nil
}

// ClearDraft discards the working draft after a post or reset
func (s *Service) ClearDraft(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[token]; ok {
		session.Draft = nil
	}
}
