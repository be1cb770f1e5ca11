package oauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

var githubHeader = map[string]string{"Accept": "application/vnd.github+json"}

type githubProvider struct {
	args ProviderArgs
	conf *oauth2.Config
}

func (g *githubProvider) Name() string {
	return "github"
}

func (g *githubProvider) AuthURL(state string) (string, error) {
	return authURL(g.conf, state)
}

func (g *githubProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
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

type githubUserResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (g *githubProvider) ProfileFromToken(ctx context.Context, accessToken string) (*Profile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, appErr.ErrUnauthorized
	}
	var user githubUserResponse
	if err := g.args.getJSON(ctx, g.args.endpoint(g.args.Endpoints.UserInfoURL, githubUserURL), accessToken, githubHeader, &user); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		var err error
		email, err = g.primaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
	}
	if email == "" {
		return nil, appErr.ErrInvalid
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &Profile{
		Provider:       "github",
		ProviderUserID: fmt.Sprint(user.ID),
		Email:          email,
		Name:           name,
		Picture:        user.AvatarURL,
		AccessToken:    accessToken,
	}, nil
}

type githubEmailResponse struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *githubProvider) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmailResponse
	if err := g.args.getJSON(ctx, g.args.endpoint(g.args.Endpoints.EmailsURL, githubEmailsURL), accessToken, githubHeader, &emails); err != nil {
		return "", err
	}
	for _, item := range emails {
		if item.Primary && item.Verified {
			return item.Email, nil
		}
	}
	for _, item := range emails {
		if item.Verified {
			return item.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func newGithubProvider(args interface{}) (Provider, error) {
	cfg, err := decodeProviderArgs(args)
	if err != nil {
		return nil, err
	}
	return &githubProvider{args: cfg, conf: cfg.oauthConfig(github.Endpoint, []string{"read:user", "user:email"})}, nil
}

func init() {
	Register("github", newGithubProvider)
}
