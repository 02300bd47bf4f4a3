package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/you/go-voice-flights/internal/apperr"
	"github.com/you/go-voice-flights/internal/config"
	"github.com/you/go-voice-flights/internal/logger"
)

const tokenPath = "/v1/security/oauth2/token"

// AccessToken is a provider bearer credential.
type AccessToken struct {
	Value     string
	Type      string
	ExpiresAt time.Time
}

// TokenSource hands out a currently valid provider token.
type TokenSource interface {
	Token(ctx context.Context) (AccessToken, error)
}

// TokenBroker caches the provider's client-credentials token and refreshes it
// before it expires. Concurrent callers that find no valid token share one
// refresh call.
type TokenBroker struct {
	url       string
	id        string
	secret    string
	client    *http.Client
	timeout   time.Duration
	margin    time.Duration
	fallback  time.Duration
	now       func() time.Time
	refreshes singleflight.Group

	mu  sync.Mutex
	tok *AccessToken
}

func NewTokenBroker(cfg *config.Config, client *http.Client) *TokenBroker {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenBroker{
		url:      cfg.AmadeusURL + tokenPath,
		id:       cfg.AmadeusClientID,
		secret:   cfg.AmadeusClientSecret,
		client:   client,
		timeout:  cfg.RequestTimeout,
		margin:   cfg.TokenSafetyMargin,
		fallback: cfg.TokenCacheTime,
		now:      time.Now,
	}
}

// Token returns the cached token while it is valid for longer than the safety
// margin, otherwise it waits for a shared refresh. A caller whose ctx ends
// stops waiting; the refresh itself keeps running for the other waiters.
func (b *TokenBroker) Token(ctx context.Context) (AccessToken, error) {
	if tok, ok := b.cached(); ok {
		return tok, nil
	}

	ch := b.refreshes.DoChan("token", func() (any, error) {
		// a refresh that finished between cached() and DoChan already stored a token
		if tok, ok := b.cached(); ok {
			return tok, nil
		}
		return b.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return AccessToken{}, res.Err
		}
		return res.Val.(AccessToken), nil
	case <-ctx.Done():
		return AccessToken{}, apperr.Transport("waiting for provider token", ctx.Err())
	}
}

func (b *TokenBroker) cached() (AccessToken, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tok == nil {
		return AccessToken{}, false
	}
	if !b.now().Before(b.tok.ExpiresAt.Add(-b.margin)) {
		return AccessToken{}, false
	}
	return *b.tok, true
}

func (b *TokenBroker) store(tok AccessToken) {
	b.mu.Lock()
	b.tok = &tok
	b.mu.Unlock()
}

func (b *TokenBroker) refresh(ctx context.Context) (AccessToken, error) {
	log := logger.Named("token")
	if b.id == "" || b.secret == "" {
		return AccessToken{}, apperr.Auth(0, "provider credentials missing")
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", b.id)
	data.Set("client_secret", b.secret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, strings.NewReader(data.Encode()))
	if err != nil {
		return AccessToken{}, apperr.Auth(0, "build token request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("token request failed")
		return AccessToken{}, apperr.Transport("token request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("upstream_status", resp.StatusCode).Msg("token request rejected")
		return AccessToken{}, apperr.Auth(resp.StatusCode, "token request failed")
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return AccessToken{}, apperr.Auth(resp.StatusCode, "decode token response: "+err.Error())
	}
	if tr.AccessToken == "" {
		return AccessToken{}, apperr.Auth(resp.StatusCode, "token response without access_token")
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = b.fallback
	}
	tok := AccessToken{
		Value:     tr.AccessToken,
		Type:      tr.TokenType,
		ExpiresAt: b.now().Add(ttl),
	}
	b.store(tok)
	log.Debug().Time("expires_at", tok.ExpiresAt).Msg("provider token refreshed")
	return tok, nil
}
