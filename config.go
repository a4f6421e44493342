package jwtdebug

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
)

const (
	defaultDebounce      = 500 * time.Millisecond
	defaultTruncateWidth = 24
	defaultTokenTTL      = time.Hour
	defaultMinTokenTTL   = time.Minute
	maxClockSkew         = 5 * time.Minute
)

// VerifyOption customizes a single Verify call.
type VerifyOption func(*verifyOptions)

type verifyOptions struct {
	allowed []Algorithm
	skew    time.Duration
	clock   func() time.Time
}

// WithAllowedAlgorithms widens the accepted algorithms beyond the key's own.
// Algorithms whose family does not match the key are still rejected.
func WithAllowedAlgorithms(algs ...Algorithm) VerifyOption {
	return func(o *verifyOptions) {
		o.allowed = append([]Algorithm(nil), algs...)
	}
}

// WithAcceptableSkew tolerates clock differences when checking exp and nbf.
func WithAcceptableSkew(d time.Duration) VerifyOption {
	return func(o *verifyOptions) {
		o.skew = d
	}
}

// WithClock overrides the time source used for exp and nbf.
func WithClock(now func() time.Time) VerifyOption {
	return func(o *verifyOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

func newVerifyOptions(opts []VerifyOption) verifyOptions {
	o := verifyOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.skew < 0 {
		o.skew = 0
	}
	if o.skew > maxClockSkew {
		o.skew = maxClockSkew
	}
	return o
}

// PresenterConfig controls how claims are rendered for display.
type PresenterConfig struct {
	Locale        language.Tag
	Location      *time.Location
	TruncateWidth int
	Now           func() time.Time
}

// normalize sets default values for optional fields.
func (c *PresenterConfig) normalize() {
	if c.Locale == language.Und {
		c.Locale = language.AmericanEnglish
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.TruncateWidth <= 0 {
		c.TruncateWidth = defaultTruncateWidth
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// WorkbenchConfig configures the debounced evaluation loop.
type WorkbenchConfig struct {
	Debounce  time.Duration
	Verify    []VerifyOption
	Presenter PresenterConfig
}

// normalize sets default values for optional fields.
func (c *WorkbenchConfig) normalize() {
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	c.Presenter.normalize()
}

// ProviderConfig describes how minted tokens are built.
type ProviderConfig struct {
	Key      *Key
	Header   map[string]any
	Issuer   string
	Subject  string
	TTL      time.Duration
	Claims   map[string]any
	Now      func() time.Time
	NewJWTID func() string
}

// normalize sets default values for optional fields.
func (c *ProviderConfig) normalize() {
	if c.TTL <= 0 {
		c.TTL = defaultTokenTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// validate ensures the provider configuration is usable.
func (c ProviderConfig) validate() error {
	switch {
	case c.Key == nil:
		return errors.New("signing key is required")
	case c.Key.Algorithm() == AlgNone:
		return errors.New("minted tokens must be signed; alg none is not allowed")
	case !c.Key.CanSign():
		return fmt.Errorf("key for %s cannot sign; import it with UsageSign", c.Key.Algorithm())
	case c.TTL > 0 && c.TTL < defaultMinTokenTTL:
		return fmt.Errorf("ttl %s is shorter than %s", c.TTL, defaultMinTokenTTL)
	}
	return nil
}
