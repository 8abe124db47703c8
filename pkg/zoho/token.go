package zoho

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

const (
	defaultTokenSkew     = 5 * time.Minute
	defaultTokenLifetime = time.Hour
	refreshTimeout       = 30 * time.Second
)

// Refresher exchanges the long-lived refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// TokenStore shares access tokens between processes.
type TokenStore interface {
	Load(ctx context.Context) (token string, expiresAt time.Time, found bool, err error)
	Save(ctx context.Context, token string, expiresAt time.Time) error
	Clear(ctx context.Context) error
}

// TokenCacheParams wires a TokenCache.
type TokenCacheParams struct {
	Refresher Refresher
	// Store is optional; without it tokens only live in memory.
	Store  TokenStore
	Skew   time.Duration
	Logger *logger.Logger
	Now    func() time.Time
}

// TokenCache keeps the current access token until shortly before it expires.
// Concurrent callers that miss the cache share a single refresh.
type TokenCache struct {
	refresher Refresher
	store     TokenStore
	skew      time.Duration
	logger    *logger.Logger
	now       func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

var _ TokenSource = (*TokenCache)(nil)

// NewTokenCache validates params and builds a TokenCache.
func NewTokenCache(p TokenCacheParams) (*TokenCache, error) {
	if p.Refresher == nil {
		return nil, errors.New("token refresher is required")
	}
	if p.Logger == nil {
		return nil, errors.New("token cache logger is required")
	}
	if p.Skew <= 0 {
		p.Skew = defaultTokenSkew
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &TokenCache{
		refresher: p.Refresher,
		store:     p.Store,
		skew:      p.Skew,
		logger:    p.Logger,
		now:       p.Now,
	}, nil
}

// Token returns a usable access token, refreshing it when needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		// The refresh outlives any single caller so a cancelled request does
		// not fail everyone waiting on it.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.load(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate forgets the current token everywhere it is cached.
func (c *TokenCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error(ctx, "clear shared zoho token", err)
	}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.fresh(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *TokenCache) fresh(expiresAt time.Time) bool {
	return c.now().Add(c.skew).Before(expiresAt)
}

func (c *TokenCache) load(ctx context.Context) (string, error) {
	if c.store != nil {
		token, expiresAt, found, err := c.store.Load(ctx)
		switch {
		case err != nil:
			c.logger.Error(ctx, "load shared zoho token", err)
		case found && token != "" && c.fresh(expiresAt):
			c.remember(token, expiresAt)
			return token, nil
		}
	}

	tok, err := c.refresher.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh zoho access token: %w", err)
	}
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = c.now().Add(defaultTokenLifetime)
	}
	c.remember(tok.AccessToken, expiresAt)

	if c.store != nil {
		if err := c.store.Save(ctx, tok.AccessToken, expiresAt); err != nil {
			c.logger.Error(ctx, "save shared zoho token", err)
		}
	}
	c.logger.Info(c.logger.WithField(ctx, "expires_at", expiresAt), "zoho access token refreshed")
	return tok.AccessToken, nil
}

func (c *TokenCache) remember(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}

// OAuthRefresher runs the refresh_token grant against the Zoho accounts server.
type OAuthRefresher struct {
	cfg          *oauth2.Config
	refreshToken string
	httpClient   *http.Client
}

// NewOAuthRefresher builds a refresher. httpClient may be nil.
func NewOAuthRefresher(clientID, clientSecret, tokenURL, refreshToken string, httpClient *http.Client) (*OAuthRefresher, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, errors.New("zoho client credentials are required")
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("zoho refresh token is required")
	}
	if strings.TrimSpace(tokenURL) == "" {
		return nil, errors.New("zoho token url is required")
	}
	return &OAuthRefresher{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: refreshToken,
		httpClient:   httpClient,
	}, nil
}

func (r *OAuthRefresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	src := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: r.refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("zoho token response missing access_token")
	}
	return tok, nil
}

type sharedTokens interface {
	LoadAccessToken(ctx context.Context, organizationID string) (string, time.Time, bool, error)
	StoreAccessToken(ctx context.Context, organizationID, token string, expiresAt time.Time) error
	ClearAccessToken(ctx context.Context, organizationID string) error
}

// RedisTokenStore adapts the redis client to TokenStore, keyed by organization.
type RedisTokenStore struct {
	client         sharedTokens
	organizationID string
}

// NewRedisTokenStore builds a store scoped to organizationID.
func NewRedisTokenStore(client sharedTokens, organizationID string) *RedisTokenStore {
	return &RedisTokenStore{client: client, organizationID: organizationID}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, time.Time, bool, error) {
	return s.client.LoadAccessToken(ctx, s.organizationID)
}

func (s *RedisTokenStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	return s.client.StoreAccessToken(ctx, s.organizationID, token, expiresAt)
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.client.ClearAccessToken(ctx, s.organizationID)
}
