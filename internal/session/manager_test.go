package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/justnotes/internal/backend"
	"github.com/xxxsen/justnotes/internal/cache"
	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/drive/drivetest"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, cache.Store) {
	t.Helper()
	srv := drivetest.NewServer(t)
	p, err := backend.NewProvider(config.BackendDrive, backend.DriveArgs{Config: config.DriveConfig{
		APIBase:          srv.URL,
		RootFolderName:   "NotesData",
		MetadataFileName: ".app_metadata.json",
		MaxMembers:       2,
	}})
	require.NoError(t, err)
	store, err := cache.New(config.CacheConfig{Type: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	m := NewManager(p, store, 16, ttl)
	t.Cleanup(m.Close)
	return m, store
}

func principal(email string) *model.Principal {
	return &model.Principal{ID: email, Email: email, Name: email, AccessToken: "token-" + email}
}

func TestTransitions(t *testing.T) {
	require.True(t, canTransition(StatusSignedOut, StatusAuthenticating))
	require.True(t, canTransition(StatusBootstrapping, StatusReady))
	require.True(t, canTransition(StatusReady, StatusSignedOut))
	require.False(t, canTransition(StatusSignedOut, StatusReady))
	require.False(t, canTransition(StatusAuthenticating, StatusReady))

	s := &Session{status: StatusSignedOut}
	err := s.transition(StatusBootstrapping)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, StatusSignedOut, s.Status())
}

func TestSignInReachesReady(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	s, err := m.SignIn(ctx, principal("a@x.com"))
	require.NoError(t, err)
	require.Equal(t, StatusReady, s.Status())
	require.NotNil(t, s.Controller().State().Workspace)
	require.NotNil(t, s.Controller().State().LastSync)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	require.Same(t, s, got)
	require.Len(t, m.Ready(), 1)
	require.NoError(t, m.Sync(ctx, s))
}

func TestRejectedPrincipalIsSignedOut(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	_, err := m.SignIn(ctx, principal("a@x.com"))
	require.NoError(t, err)
	_, err = m.SignIn(ctx, principal("stranger@x.com"))
	require.ErrorIs(t, err, appErr.ErrNotInvited)
	require.True(t, appErr.IsAccessDenied(err))
	require.Len(t, m.Ready(), 1)
}

func TestSignOutClearsCacheAndCancels(t *testing.T) {
	m, store := newTestManager(t, time.Hour)
	ctx := context.Background()

	s, err := m.SignIn(ctx, principal("a@x.com"))
	require.NoError(t, err)
	_, err = s.Controller().CreateNote(ctx, nil, "hello", "")
	require.NoError(t, err)
	mirror := cache.NewMirror(store, "a@x.com")
	require.Len(t, mirror.Load(ctx).Notes, 1)

	ctrl := s.Controller()
	require.NoError(t, m.SignOut(ctx, s.ID))
	require.Equal(t, StatusSignedOut, s.Status())
	require.True(t, mirror.Load(ctx).Empty())
	select {
	case <-ctrl.Done():
	default:
		t.Fatal("controller still running after sign out")
	}
	_, ok := m.Get(s.ID)
	require.False(t, ok)
	require.ErrorIs(t, m.SignOut(ctx, s.ID), appErr.ErrNotSignedIn)
	require.ErrorIs(t, m.Sync(ctx, s), appErr.ErrNotSignedIn)
}

func TestExpiredSessionIsClosed(t *testing.T) {
	m, _ := newTestManager(t, 50*time.Millisecond)
	s, err := m.SignIn(context.Background(), principal("a@x.com"))
	require.NoError(t, err)
	ctrl := s.Controller()
	require.Eventually(t, func() bool {
		_, ok := m.Get(s.ID)
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		select {
		case <-ctrl.Done():
			return true
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
}
