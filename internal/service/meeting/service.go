package meeting

import (
	"context"
	"fmt"
	"time"

	"meetdesk-backend/internal/domain"
)

// DefaultSessionTTL is how long an idle desk is kept
const DefaultSessionTTL = 24 * time.Hour

// Service opens and saves desks for authenticated users
type Service struct {
	store      SessionStore
	cfg        Config
	sessionTTL time.Duration
}

// NewService creates a new desk service
func NewService(store SessionStore, cfg Config, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Guard == nil {
		// Shared so every desk of this process sees the same in-flight set.
		cfg.Guard = NewLocalGuard()
	}
	return &Service{
		store:      store,
		cfg:        cfg,
		sessionTTL: sessionTTL,
	}
}

// Open loads the desk of the current user, starting a fresh one if none is stored
func (s *Service) Open(ctx context.Context, io Collaborators) (*Desk, error) {
	if s.cfg.Identity == nil || s.cfg.Video == nil {
		return nil, ErrNotReady
	}
	user, ok := s.cfg.Identity.CurrentUser(ctx)
	if !ok {
		return nil, ErrNotReady
	}

	session, err := s.store.Get(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load desk: %w", err)
	}
	if session == nil {
		session = domain.NewDeskSession(user.UserID, s.cfg.Now())
	}

	desk := NewDesk(session, s.cfg, io)
	desk.commit = func(ctx context.Context) error {
		return s.Save(ctx, desk)
	}
	return desk, nil
}

// Save writes the fields the desk changed onto the stored desk, leaving
// changes made meanwhile by other requests in place. The desk then holds
// the stored result.
func (s *Service) Save(ctx context.Context, desk *Desk) error {
	var merged *domain.DeskSession
	err := s.store.Update(ctx, desk.Session().UserID, s.sessionTTL, func(stored *domain.DeskSession) *domain.DeskSession {
		merged = desk.mergeInto(stored)
		return merged
	})
	if err != nil {
		return fmt.Errorf("failed to save desk: %w", err)
	}
	desk.saved(merged)
	return nil
}
