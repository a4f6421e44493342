package jwtdebug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenFactory allows callers to override how token sources are built.
type TokenFactory func(context.Context, string, ProviderParams) (oauth2.TokenSource, error)

// Provider mints signed tokens for an audience. It caches one reusable
// token source per (audience, subject, ttl, claims) so a token is re-minted
// only once the previous one is close to expiry.
type Provider struct {
	mu       sync.RWMutex
	cfg      ProviderConfig
	factory  TokenFactory
	entries  map[providerKey]*tokenSourceEntry
	defaults ProviderParams
}

type providerKey struct {
	Audience string
	Subject  string
	TTL      time.Duration
	Claims   string
}

type tokenSourceEntry struct {
	source oauth2.TokenSource
}

// ProviderParams are the per-call settings of a minted token.
type ProviderParams struct {
	Subject string
	TTL     time.Duration
	Claims  map[string]any
}

// TokenOption customizes the behaviour for a single Token call.
type TokenOption func(*ProviderParams)

// WithSubject overrides the "sub" claim.
func WithSubject(subject string) TokenOption {
	return func(p *ProviderParams) {
		p.Subject = subject
	}
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(p *ProviderParams) {
		if ttl > 0 {
			p.TTL = ttl
		}
	}
}

// WithClaim adds a private claim to the minted token.
func WithClaim(name string, value any) TokenOption {
	return func(p *ProviderParams) {
		if p.Claims == nil {
			p.Claims = make(map[string]any)
		}
		p.Claims[name] = value
	}
}

// WithTokenFactory replaces the default minting token source.
func WithTokenFactory(factory TokenFactory) func(*Provider) {
	return func(p *Provider) {
		if factory != nil {
			p.factory = factory
		}
	}
}

// NewProvider constructs a Provider that signs with cfg.Key.
func NewProvider(cfg ProviderConfig, opts ...func(*Provider)) (*Provider, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("provider config: %w", err)
	}
	p := &Provider{
		cfg:     cfg,
		entries: make(map[providerKey]*tokenSourceEntry),
		defaults: ProviderParams{
			Subject: cfg.Subject,
			TTL:     cfg.TTL,
		},
	}
	p.factory = p.mintingFactory
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Token returns a signed token for the given audience. An empty audience
// mints tokens without an "aud" claim.
func (p *Provider) Token(ctx context.Context, audience string, opts ...TokenOption) (string, error) {
	src, err := p.TokenSource(ctx, audience, opts...)
	if err != nil {
		return "", err
	}
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access token returned")
	}
	return tok.AccessToken, nil
}

// TokenSource returns the cached oauth2.TokenSource for the given settings.
func (p *Provider) TokenSource(ctx context.Context, audience string, opts ...TokenOption) (oauth2.TokenSource, error) {
	params := cloneParams(p.defaults)
	for _, opt := range opts {
		opt(&params)
	}
	claimsKey, err := json.Marshal(params.Claims)
	if err != nil {
		return nil, fmt.Errorf("encode claims: %w", err)
	}

	key := providerKey{
		Audience: strings.TrimSpace(audience),
		Subject:  params.Subject,
		TTL:      params.TTL,
		Claims:   string(claimsKey),
	}
	entry, err := p.getOrCreate(ctx, key, params)
	if err != nil {
		return nil, err
	}
	return entry.source, nil
}

func (p *Provider) getOrCreate(ctx context.Context, key providerKey, params ProviderParams) (*tokenSourceEntry, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()
	if ok {
		return entry, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok = p.entries[key]; ok {
		return entry, nil
	}

	ts, err := p.factory(ctx, key.Audience, params)
	if err != nil {
		return nil, err
	}
	entry = &tokenSourceEntry{source: oauth2.ReuseTokenSource(nil, ts)}
	p.entries[key] = entry
	return entry, nil
}

func (p *Provider) mintingFactory(_ context.Context, audience string, params ProviderParams) (oauth2.TokenSource, error) {
	return &mintingSource{cfg: p.cfg, audience: audience, params: params}, nil
}

// mintingSource signs a fresh token on every call.
type mintingSource struct {
	cfg      ProviderConfig
	audience string
	params   ProviderParams
}

func (s *mintingSource) Token() (*oauth2.Token, error) {
	now := s.cfg.Now()
	expiry := now.Add(s.params.TTL)

	payload := make(map[string]any, len(s.cfg.Claims)+len(s.params.Claims)+6)
	maps.Copy(payload, s.cfg.Claims)
	maps.Copy(payload, s.params.Claims)
	if s.cfg.Issuer != "" {
		payload["iss"] = s.cfg.Issuer
	}
	if s.params.Subject != "" {
		payload["sub"] = s.params.Subject
	}
	if s.audience != "" {
		payload["aud"] = s.audience
	}
	payload["iat"] = now.Unix()
	payload["exp"] = expiry.Unix()
	payload["jti"] = s.newJWTID()

	signed, err := Sign(s.cfg.Header, payload, s.cfg.Key)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

func (s *mintingSource) newJWTID() string {
	if s.cfg.NewJWTID != nil {
		return s.cfg.NewJWTID()
	}
	return uuid.NewString()
}

func cloneParams(in ProviderParams) ProviderParams {
	out := in
	if len(in.Claims) > 0 {
		out.Claims = maps.Clone(in.Claims)
	}
	return out
}
