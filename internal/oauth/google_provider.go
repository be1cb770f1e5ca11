package oauth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var googleScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/drive.file",
}

type googleProvider struct {
	args ProviderArgs
	conf *oauth2.Config
}

func (g *googleProvider) Name() string {
	return "google"
}

func (g *googleProvider) AuthURL(state string) (string, error) {
	return authURL(g.conf, state, oauth2.AccessTypeOnline)
}

func (g *googleProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	token, err := g.args.exchange(ctx, g.conf, code)
	if err != nil {
		return nil, err
	}
	profile, err := g.ProfileFromToken(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	profile.Expiry = token.Expiry
	return profile, nil
}

type googleUserResponse struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *googleProvider) ProfileFromToken(ctx context.Context, accessToken string) (*Profile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, appErr.ErrUnauthorized
	}
	var user googleUserResponse
	url := g.args.endpoint(g.args.Endpoints.UserInfoURL, googleUserInfoURL)
	if err := g.args.getJSON(ctx, url, accessToken, nil, &user); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(user.Email)
	if user.Sub == "" || email == "" {
		return nil, appErr.ErrInvalid
	}
	return &Profile{
		Provider:       "google",
		ProviderUserID: user.Sub,
		Email:          email,
		Name:           user.Name,
		Picture:        user.Picture,
		AccessToken:    accessToken,
	}, nil
}

func newGoogleProvider(args interface{}) (Provider, error) {
	cfg, err := decodeProviderArgs(args)
	if err != nil {
		return nil, err
	}
	return &googleProvider{args: cfg, conf: cfg.oauthConfig(google.Endpoint, googleScopes)}, nil
}

func init() {
	Register("google", newGoogleProvider)
}
