package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Endpoints overrides the provider's well-known URLs. Empty fields keep
// the defaults.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	EmailsURL   string
}

type ProviderArgs struct {
	Config    ProviderConfig
	Endpoints Endpoints
	Client    *http.Client
}

func decodeProviderArgs(args interface{}) (ProviderArgs, error) {
	var cfg ProviderArgs
	if args != nil {
		v, ok := args.(ProviderArgs)
		if !ok {
			return ProviderArgs{}, fmt.Errorf("oauth provider args must be ProviderArgs, got %T", args)
		}
		cfg = v
	}
	cfg.Config.RedirectURL = strings.TrimSpace(cfg.Config.RedirectURL)
	cfg.Config.ClientID = strings.TrimSpace(cfg.Config.ClientID)
	cfg.Config.ClientSecret = strings.TrimSpace(cfg.Config.ClientSecret)
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return cfg, nil
}

func (a ProviderArgs) oauthConfig(endpoint oauth2.Endpoint, defaultScopes []string) *oauth2.Config {
	if a.Endpoints.AuthURL != "" {
		endpoint.AuthURL = a.Endpoints.AuthURL
	}
	if a.Endpoints.TokenURL != "" {
		endpoint.TokenURL = a.Endpoints.TokenURL
	}
	scopes := a.Config.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return &oauth2.Config{
		ClientID:     a.Config.ClientID,
		ClientSecret: a.Config.ClientSecret,
		RedirectURL:  a.Config.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

func (a ProviderArgs) endpoint(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func (a ProviderArgs) exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		return nil, appErr.ErrInvalid
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.Client)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", appErr.ErrUnauthorized, err)
	}
	if token.AccessToken == "" {
		return nil, appErr.ErrInvalid
	}
	return token, nil
}

func authURL(conf *oauth2.Config, state string, opts ...oauth2.AuthCodeOption) (string, error) {
	if conf.ClientID == "" || conf.RedirectURL == "" {
		return "", appErr.ErrInvalid
	}
	return conf.AuthCodeURL(state, opts...), nil
}

func (a ProviderArgs) getJSON(ctx context.Context, url, accessToken string, header map[string]string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s rejected the token", appErr.ErrUnauthorized, url)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request %s failed: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
