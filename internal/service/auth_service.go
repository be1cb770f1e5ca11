package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/oauth"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/jwt"
	"github.com/xxxsen/justnotes/internal/session"
)

type AuthService struct {
	sessions  *session.Manager
	providers map[string]oauth.Provider
	jwtSecret []byte
	jwtTTL    time.Duration
}

type SignInResult struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"-"`
}

func NewAuthService(sessions *session.Manager, providers map[string]oauth.Provider, secret []byte, ttl time.Duration) *AuthService {
	if providers == nil {
		providers = map[string]oauth.Provider{}
	}
	return &AuthService{sessions: sessions, providers: providers, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) provider(name string) (oauth.Provider, error) {
	impl := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if impl == nil {
		return nil, appErr.ErrInvalid
	}
	return impl, nil
}

func (s *AuthService) GetAuthURL(provider, state string) (string, error) {
	impl, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return impl.AuthURL(state)
}

// SignInWithCode finishes the redirect flow.
func (s *AuthService) SignInWithCode(ctx context.Context, provider, code string) (*SignInResult, error) {
	impl, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	profile, err := impl.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, profile)
}

// SignInWithToken accepts an access token the client obtained itself.
func (s *AuthService) SignInWithToken(ctx context.Context, provider, accessToken string) (*SignInResult, error) {
	impl, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	profile, err := impl.ProfileFromToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, profile)
}

func (s *AuthService) signIn(ctx context.Context, profile *oauth.Profile) (*SignInResult, error) {
	sess, err := s.sessions.SignIn(ctx, profile.Principal())
	if err != nil {
		return nil, err
	}
	token, err := jwt.GenerateToken(sess.ID, profile.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		_ = s.sessions.SignOut(ctx, sess.ID)
		return nil, err
	}
	logutil.GetLogger(ctx).Info("principal signed in",
		zap.String("provider", profile.Provider),
		zap.String("email", profile.Email),
		zap.String("status", string(sess.Status())),
	)
	return &SignInResult{Token: token, Session: sess}, nil
}

// Resolve maps a session id from a verified token to its live session.
func (s *AuthService) Resolve(sessionID string) (*session.Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, appErr.ErrUnauthorized
	}
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.SignOut(ctx, sessionID)
}
