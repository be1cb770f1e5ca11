package oauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/justnotes/internal/model"
)

type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	AccessToken    string
	Expiry         time.Time
}

func (p *Profile) Principal() *model.Principal {
	email := model.NormalizeEmail(p.Email)
	name := p.Name
	if name == "" {
		name = email
	}
	return &model.Principal{
		ID:          p.ProviderUserID,
		Email:       email,
		Name:        name,
		Picture:     p.Picture,
		Provider:    p.Provider,
		AccessToken: p.AccessToken,
		TokenExpiry: p.Expiry,
	}
}

type Provider interface {
	Name() string
	AuthURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
	// ProfileFromToken resolves an access token the client obtained on
	// its own.
	ProfileFromToken(ctx context.Context, accessToken string) (*Profile, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("oauth provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported oauth provider: %s", name)
	}
	return factory(args)
}
