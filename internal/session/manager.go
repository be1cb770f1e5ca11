package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/backend"
	"github.com/xxxsen/justnotes/internal/cache"
	"github.com/xxxsen/justnotes/internal/controller"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

type Manager struct {
	provider backend.Provider
	store    cache.Store
	sessions *expirable.LRU[string, *Session]
}

func NewManager(provider backend.Provider, store cache.Store, size int, ttl time.Duration) *Manager {
	m := &Manager{provider: provider, store: store}
	m.sessions = expirable.NewLRU[string, *Session](size, m.onEvict, ttl)
	return m
}

// onEvict runs for expiry, capacity eviction and explicit removal.
func (m *Manager) onEvict(id string, s *Session) {
	if ctrl := s.end(); ctrl != nil {
		ctrl.Close()
	}
	logutil.GetLogger(context.Background()).Info("session ended",
		zap.String("session_id", id),
		zap.String("email", s.Principal.Email),
	)
}

// SignIn takes an authenticated principal through authorization, workspace
// bootstrap and the initial load. A rejected principal ends signed out
// with the rejection returned. Other bootstrap failures leave the session
// authorized so Sync can retry.
func (m *Manager) SignIn(ctx context.Context, principal *model.Principal) (*Session, error) {
	if principal == nil || strings.TrimSpace(principal.Email) == "" {
		return nil, fmt.Errorf("%w: principal email required", appErr.ErrUnauthorized)
	}
	normalized := *principal
	normalized.Email = model.NormalizeEmail(principal.Email)
	principal = &normalized
	s := &Session{
		ID:        uuid.NewString(),
		Principal: principal,
		CreatedAt: timeutil.Now(),
		status:    StatusSignedOut,
	}
	if err := s.transition(StatusAuthenticating); err != nil {
		return nil, err
	}
	b, err := m.provider.Connect(ctx, principal)
	if err != nil {
		s.end()
		return nil, err
	}
	if err := s.transition(StatusAuthorized); err != nil {
		return nil, err
	}
	ctrl := controller.New(ctx, principal, b, cache.NewUserMirror(m.store, principal.Email))
	s.setController(ctrl)
	ctrl.LoadCache(ctx)
	m.sessions.Add(s.ID, s)

	if err := m.bootstrap(ctx, s); err != nil {
		if appErr.IsAccessDenied(err) {
			logutil.GetLogger(ctx).Warn("principal rejected by workspace",
				zap.String("email", principal.Email), zap.Error(err))
			ctrl.SignOut(ctx)
			m.sessions.Remove(s.ID)
			return nil, err
		}
		logutil.GetLogger(ctx).Error("bootstrap workspace failed", zap.String("email", principal.Email), zap.Error(err))
		return s, nil
	}
	if err := ctrl.Refresh(ctx); err != nil {
		logutil.GetLogger(ctx).Error("initial load failed", zap.String("email", principal.Email), zap.Error(err))
	}
	return s, nil
}

func (m *Manager) bootstrap(ctx context.Context, s *Session) error {
	if err := s.transition(StatusBootstrapping); err != nil {
		return err
	}
	if _, err := s.Controller().Bootstrap(ctx); err != nil {
		if !appErr.IsAccessDenied(err) {
			_ = s.transition(StatusAuthorized)
		}
		return err
	}
	return s.transition(StatusReady)
}

// Sync retries the bootstrap when it has not succeeded yet, then reloads
// everything.
func (m *Manager) Sync(ctx context.Context, s *Session) error {
	switch s.Status() {
	case StatusAuthorized:
		if err := m.bootstrap(ctx, s); err != nil {
			if appErr.IsAccessDenied(err) {
				_ = m.SignOut(ctx, s.ID)
			}
			return err
		}
	case StatusReady:
	default:
		return appErr.ErrNotSignedIn
	}
	return s.Controller().Refresh(ctx)
}

func (m *Manager) Get(id string) (*Session, bool) {
	s, ok := m.sessions.Get(id)
	if !ok || s.Status() == StatusSignedOut {
		return nil, false
	}
	return s, true
}

// SignOut cancels outstanding tasks and clears the principal's cache.
func (m *Manager) SignOut(ctx context.Context, id string) error {
	s, ok := m.sessions.Peek(id)
	if !ok {
		return appErr.ErrNotSignedIn
	}
	if ctrl := s.Controller(); ctrl != nil {
		ctrl.SignOut(ctx)
	}
	m.sessions.Remove(id)
	return nil
}

// Ready lists the sessions that finished bootstrapping.
func (m *Manager) Ready() []*Session {
	out := make([]*Session, 0, m.sessions.Len())
	for _, s := range m.sessions.Values() {
		if s.Status() == StatusReady {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) Close() {
	m.sessions.Purge()
}
