package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/justnotes/internal/middleware"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/response"
	"github.com/xxxsen/justnotes/internal/service"
	"github.com/xxxsen/justnotes/internal/state"
)

type AuthHandler struct {
	auth       *service.AuthService
	stateStore *oauthStateStore
	appURL     string
}

func NewAuthHandler(auth *service.AuthService, appURL string) *AuthHandler {
	return &AuthHandler{auth: auth, stateStore: newOAuthStateStore(), appURL: strings.TrimSuffix(appURL, "/")}
}

type signInResponse struct {
	Token  string     `json:"token"`
	Status string     `json:"status"`
	View   state.View `json:"view"`
}

func (h *AuthHandler) AuthURL(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	st := h.stateStore.Create(provider)
	authURL, err := h.auth.GetAuthURL(provider, st)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": authURL})
}

func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	st := c.Query("state")
	if code == "" || st == "" {
		h.redirectAuthError(c, "invalid", "")
		return
	}
	provider, ok := h.stateStore.Consume(st)
	if !ok || provider != strings.ToLower(c.Param("provider")) {
		h.redirectAuthError(c, "invalid", provider)
		return
	}
	res, err := h.auth.SignInWithCode(c.Request.Context(), provider, code)
	if err != nil {
		h.redirectAuthError(c, mapAuthError(err), provider)
		return
	}
	params := url.Values{}
	params.Set("token", res.Token)
	params.Set("email", res.Session.Principal.Email)
	params.Set("provider", provider)
	c.Redirect(http.StatusFound, h.appURL+"/oauth/callback?"+params.Encode())
}

type tokenSignInRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
}

// TokenSignIn accepts an access token obtained by the client directly.
func (h *AuthHandler) TokenSignIn(c *gin.Context) {
	var req tokenSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if req.Provider == "" {
		req.Provider = "google"
	}
	res, err := h.auth.SignInWithToken(c.Request.Context(), req.Provider, req.AccessToken)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, signInResponse{
		Token:  res.Token,
		Status: string(res.Session.Status()),
		View:   res.Session.Controller().View(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		handleError(c, appErr.ErrNotSignedIn)
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), sess.ID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}

func (h *AuthHandler) redirectAuthError(c *gin.Context, code, provider string) {
	params := url.Values{}
	params.Set("error", code)
	if provider != "" {
		params.Set("provider", provider)
	}
	c.Redirect(http.StatusFound, h.appURL+"/oauth/callback?"+params.Encode())
}

func mapAuthError(err error) string {
	switch {
	case errors.Is(err, appErr.ErrWorkspaceFull):
		return "workspace_full"
	case errors.Is(err, appErr.ErrNotInvited):
		return "not_invited"
	case errors.Is(err, appErr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, appErr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, appErr.ErrInvalid):
		return "invalid"
	default:
		return "internal"
	}
}

type oauthState struct {
	Provider  string
	ExpiresAt time.Time
}

type oauthStateStore struct {
	mu    sync.Mutex
	items map[string]oauthState
}

func newOAuthStateStore() *oauthStateStore {
	return &oauthStateStore{items: make(map[string]oauthState)}
}

func (s *oauthStateStore) Create(provider string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	st := randomState()
	s.items[st] = oauthState{
		Provider:  provider,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	return st
}

func (s *oauthStateStore) Consume(st string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	item, ok := s.items[st]
	if !ok {
		return "", false
	}
	delete(s.items, st)
	if time.Now().After(item.ExpiresAt) {
		return "", false
	}
	return item.Provider, true
}

func (s *oauthStateStore) cleanupLocked() {
	now := time.Now()
	for key, item := range s.items {
		if now.After(item.ExpiresAt) {
			delete(s.items, key)
		}
	}
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
