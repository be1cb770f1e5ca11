package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/justnotes/internal/backend"
	"github.com/xxxsen/justnotes/internal/cache"
	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/drive/drivetest"
	"github.com/xxxsen/justnotes/internal/filestore"
	"github.com/xxxsen/justnotes/internal/handler"
	"github.com/xxxsen/justnotes/internal/middleware"
	"github.com/xxxsen/justnotes/internal/oauth"
	"github.com/xxxsen/justnotes/internal/pkg/errcode"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/service"
	"github.com/xxxsen/justnotes/internal/session"
)

type stubProvider struct {
	profiles map[string]*oauth.Profile
}

func (p *stubProvider) Name() string { return "google" }

func (p *stubProvider) AuthURL(state string) (string, error) {
	return "https://idp.example/auth?state=" + url.QueryEscape(state), nil
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Profile, error) {
	return p.ProfileFromToken(ctx, code)
}

func (p *stubProvider) ProfileFromToken(_ context.Context, token string) (*oauth.Profile, error) {
	profile, ok := p.profiles[token]
	if !ok {
		return nil, appErr.ErrUnauthorized
	}
	out := *profile
	out.AccessToken = token
	return &out, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, commentLimit time.Duration) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := drivetest.NewServer(t)
	provider, err := backend.NewProvider(config.BackendDrive, backend.DriveArgs{Config: config.DriveConfig{
		APIBase:          srv.URL,
		RootFolderName:   "NotesData",
		MetadataFileName: ".app_metadata.json",
		MaxMembers:       2,
	}})
	require.NoError(t, err)
	kv, err := cache.New(config.CacheConfig{Type: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	sessions := session.NewManager(provider, kv, 16, time.Hour)
	t.Cleanup(sessions.Close)

	idp := &stubProvider{profiles: map[string]*oauth.Profile{
		"owner-token":    {Provider: "google", ProviderUserID: "1", Email: "owner@x.com", Name: "Owner"},
		"stranger-token": {Provider: "google", ProviderUserID: "2", Email: "stranger@x.com", Name: "Stranger"},
	}}
	jwtSecret := []byte("test-secret")
	authService := service.NewAuthService(sessions, map[string]oauth.Provider{"google": idp}, jwtSecret, time.Hour)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	deps := handler.RouterDeps{
		Auth:             handler.NewAuthHandler(authService, "http://app.example"),
		Workspace:        handler.NewWorkspaceHandler(sessions),
		Folders:          handler.NewFolderHandler(),
		Notes:            handler.NewNoteHandler(),
		Export:           handler.NewExportHandler(service.NewExportService(store)),
		Files:            handler.NewFileHandler(store),
		Sessions:         authService,
		JWTSecret:        jwtSecret,
		CommentRateLimit: commentLimit,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func call(t *testing.T, router http.Handler, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.Equal(t, 0, env.Code, env.Msg)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func signIn(t *testing.T, router http.Handler, accessToken string) string {
	t.Helper()
	var res struct {
		Token  string `json:"token"`
		Status string `json:"status"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"provider":     "google",
		"access_token": accessToken,
	}), &res)
	require.NotEmpty(t, res.Token)
	require.Equal(t, "ready", res.Status)
	return res.Token
}

func TestWorkspaceFlow(t *testing.T) {
	router := setupRouter(t, 0)

	unauthorized := call(t, router, http.MethodGet, "/api/v1/workspace", "", nil)
	require.Equal(t, errcode.ErrUnauthorized, unauthorized.Code)

	token := signIn(t, router, "owner-token")

	var folder struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/folders", token, map[string]string{"name": "  Work "}), &folder)
	require.Equal(t, "Work", folder.Name)

	empty := call(t, router, http.MethodPost, "/api/v1/folders", token, map[string]string{"name": "  "})
	require.Equal(t, errcode.ErrInvalid, empty.Code)

	var note struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		FolderID *string `json:"folderId"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/notes", token, map[string]interface{}{
		"folderId": folder.ID,
		"title":    "Plan",
		"content":  "first draft",
	}), &note)
	require.Equal(t, "Plan", note.Title)
	require.NotNil(t, note.FolderID)
	require.Equal(t, folder.ID, *note.FolderID)

	decode(t, call(t, router, http.MethodPut, "/api/v1/notes/"+note.ID, token, map[string]string{
		"title":   "Plan v2",
		"content": "second draft",
	}), &note)
	require.Equal(t, "Plan v2", note.Title)

	var comment struct {
		Content   string `json:"content"`
		CreatedBy string `json:"createdBy"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/notes/"+note.ID+"/comments", token, map[string]string{
		"content": "looks good",
	}), &comment)
	require.Equal(t, "looks good", comment.Content)
	require.Equal(t, "owner@x.com", comment.CreatedBy)

	var searched struct {
		FilteredNotes []json.RawMessage `json:"filteredNotes"`
	}
	decode(t, call(t, router, http.MethodPut, "/api/v1/search", token, map[string]string{"query": "DRAFT"}), &searched)
	require.Len(t, searched.FilteredNotes, 1)
	decode(t, call(t, router, http.MethodPut, "/api/v1/search", token, map[string]string{"query": "nothing"}), &searched)
	require.Empty(t, searched.FilteredNotes)

	var ws struct {
		Status string `json:"status"`
		View   struct {
			Notes            []json.RawMessage `json:"notes"`
			SelectedNoteID   *string           `json:"selectedNoteId"`
			SelectedComments []json.RawMessage `json:"selectedComments"`
			CanInvite        bool              `json:"canInvite"`
		} `json:"view"`
	}
	decode(t, call(t, router, http.MethodGet, "/api/v1/workspace?noteId="+note.ID, token, nil), &ws)
	require.Equal(t, "ready", ws.Status)
	require.Len(t, ws.View.Notes, 1)
	require.NotNil(t, ws.View.SelectedNoteID)
	require.Equal(t, note.ID, *ws.View.SelectedNoteID)
	require.Len(t, ws.View.SelectedComments, 1)
	require.True(t, ws.View.CanInvite)

	missing := call(t, router, http.MethodPut, "/api/v1/notes/missing", token, map[string]string{"title": "x"})
	require.Equal(t, errcode.ErrNotFound, missing.Code)

	require.Equal(t, 0, call(t, router, http.MethodDelete, "/api/v1/notes/"+note.ID, token, nil).Code)
	require.Equal(t, 0, call(t, router, http.MethodDelete, "/api/v1/folders/"+folder.ID, token, nil).Code)
	decode(t, call(t, router, http.MethodGet, "/api/v1/workspace", token, nil), &ws)
	require.Empty(t, ws.View.Notes)

	require.Equal(t, 0, call(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	after := call(t, router, http.MethodGet, "/api/v1/workspace", token, nil)
	require.Equal(t, errcode.ErrUnauthorized, after.Code)
}

func TestStrangerIsRejected(t *testing.T) {
	router := setupRouter(t, 0)
	signIn(t, router, "owner-token")

	res := call(t, router, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"provider":     "google",
		"access_token": "stranger-token",
	})
	require.Equal(t, errcode.ErrNotInvited, res.Code)

	bogus := call(t, router, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"provider":     "google",
		"access_token": "bogus",
	})
	require.Equal(t, errcode.ErrUnauthorized, bogus.Code)
}

func TestInviteThenGuestSignsIn(t *testing.T) {
	router := setupRouter(t, 0)
	owner := signIn(t, router, "owner-token")

	var invite struct {
		Kind  string `json:"kind"`
		Email string `json:"email"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/invite", owner, map[string]string{"email": "stranger@x.com"}), &invite)
	require.Equal(t, "stranger@x.com", invite.Email)

	guest := signIn(t, router, "stranger-token")
	var ws struct {
		View struct {
			CanInvite bool `json:"canInvite"`
		} `json:"view"`
	}
	decode(t, call(t, router, http.MethodGet, "/api/v1/workspace", guest, nil), &ws)
	require.False(t, ws.View.CanInvite)

	denied := call(t, router, http.MethodPost, "/api/v1/invite", guest, map[string]string{"email": "third@x.com"})
	require.Equal(t, errcode.ErrForbidden, denied.Code)
}

func TestCommentRateLimit(t *testing.T) {
	router := setupRouter(t, time.Hour)
	token := signIn(t, router, "owner-token")

	var note struct {
		ID string `json:"id"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/notes", token, map[string]string{"title": "n"}), &note)

	first := call(t, router, http.MethodPost, "/api/v1/notes/"+note.ID+"/comments", token, map[string]string{"content": "a"})
	require.Equal(t, 0, first.Code)
	second := call(t, router, http.MethodPost, "/api/v1/notes/"+note.ID+"/comments", token, map[string]string{"content": "b"})
	require.Equal(t, errcode.ErrTooMany, second.Code)
}

func TestExportDownload(t *testing.T) {
	router := setupRouter(t, 0)
	token := signIn(t, router, "owner-token")
	require.Equal(t, 0, call(t, router, http.MethodPost, "/api/v1/notes", token, map[string]string{
		"title":   "Groceries",
		"content": "milk",
	}).Code)

	var res struct {
		Key   string `json:"key"`
		URL   string `json:"url"`
		Notes int    `json:"notes"`
	}
	decode(t, call(t, router, http.MethodPost, "/api/v1/export", token, nil), &res)
	require.Equal(t, 1, res.Notes)
	require.Contains(t, res.URL, "/api/v1/files/"+res.Key)

	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, u.Path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "application/zip", resp.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("PK")))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/exports/missing.zip", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOAuthRedirectFlow(t *testing.T) {
	router := setupRouter(t, 0)

	var res struct {
		URL string `json:"url"`
	}
	decode(t, call(t, router, http.MethodGet, "/api/v1/auth/google/url", "", nil), &res)
	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	callback := func(query string) *url.URL {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?"+query, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusFound, resp.Code)
		loc, err := url.Parse(resp.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/oauth/callback", loc.Path)
		return loc
	}

	loc := callback("code=owner-token&state=" + url.QueryEscape(state))
	require.NotEmpty(t, loc.Query().Get("token"))
	require.Equal(t, "owner@x.com", loc.Query().Get("email"))

	replay := callback("code=owner-token&state=" + url.QueryEscape(state))
	require.Equal(t, "invalid", replay.Query().Get("error"))

	decode(t, call(t, router, http.MethodGet, "/api/v1/auth/google/url", "", nil), &res)
	u, err = url.Parse(res.URL)
	require.NoError(t, err)
	denied := callback("code=stranger-token&state=" + url.QueryEscape(u.Query().Get("state")))
	require.Equal(t, "not_invited", denied.Query().Get("error"))
}
