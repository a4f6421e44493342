package jwtdebug

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

const notAvailable = "N/A"

var (
	localeTags = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Spanish,
		language.Japanese,
	}
	// localeLayouts is indexed like localeTags.
	localeLayouts = []string{
		"1/2/2006, 3:04:05 PM",
		"02/01/2006, 15:04:05",
		"2.1.2006, 15:04:05",
		"02/01/2006 15:04:05",
		"2/1/2006, 15:04:05",
		"2006/1/2 15:04:05",
	}
	localeMatcher = language.NewMatcher(localeTags)
)

// TimeClaim is a NumericDate claim prepared for display.
type TimeClaim struct {
	Unix     int64
	Time     time.Time
	Display  string
	Relative string
	Expired  bool
}

// Label renders the claim like "1/2/2030, 3:04:05 PM (Valid)".
func (t TimeClaim) Label() string {
	if t.Expired {
		return t.Display + " (Expired)"
	}
	return t.Display + " (Valid)"
}

// DisplayValue keeps the full claim value next to a shortened form. Only
// Short is meant for display; copy and verify paths use Full.
type DisplayValue struct {
	Full  string
	Short string
}

// Summary is the human-readable view of a decoded token.
type Summary struct {
	Algorithm string
	Type      string
	IssuedAt  *TimeClaim
	ExpiresAt *TimeClaim
	NotBefore *TimeClaim
	Subject   DisplayValue
	Issuer    DisplayValue
	Audience  []string
	JWTID     string
	Claims    *Claims
}

// Presenter derives summaries. It holds configuration only and is safe for
// concurrent use.
type Presenter struct {
	cfg    PresenterConfig
	layout string
}

// NewPresenter builds a presenter; zero config fields take defaults.
func NewPresenter(cfg PresenterConfig) *Presenter {
	cfg.normalize()
	_, idx, _ := localeMatcher.Match(cfg.Locale)
	return &Presenter{cfg: cfg, layout: localeLayouts[idx]}
}

// Summarize derives a summary from a payload with default settings.
func Summarize(payload map[string]any) Summary {
	return NewPresenter(PresenterConfig{}).Summarize(payload)
}

// Summarize derives display values from a decoded payload.
func (p *Presenter) Summarize(payload map[string]any) Summary {
	now := p.cfg.Now()
	claims := ExtractClaims(payload)
	s := Summary{
		Subject:  p.shorten(claims.Subject),
		Issuer:   p.shorten(claims.Issuer),
		Audience: claims.Audience,
		JWTID:    claims.JWTID,
		Claims:   claims,
	}
	if t, ok := timeClaim(payload, "iat"); ok {
		c := p.timeClaim(t)
		c.Relative = relative(now.Sub(t)) + " ago"
		s.IssuedAt = &c
	}
	if t, ok := timeClaim(payload, "nbf"); ok {
		c := p.timeClaim(t)
		if t.After(now) {
			c.Relative = "in " + relative(t.Sub(now))
		} else {
			c.Relative = "active"
		}
		s.NotBefore = &c
	}
	if t, ok := timeClaim(payload, "exp"); ok {
		c := p.timeClaim(t)
		// Compared at millisecond precision, as exp * 1000 against the clock.
		if t.UnixMilli() <= now.UnixMilli() {
			c.Expired = true
			c.Relative = "expired"
		} else {
			c.Relative = relative(t.Sub(now))
		}
		s.ExpiresAt = &c
	}
	return s
}

// SummarizeToken adds header details to the payload summary.
func (p *Presenter) SummarizeToken(tok *Token) Summary {
	s := p.Summarize(tok.Payload)
	s.Algorithm = notAvailable
	if alg, ok := tok.Algorithm(); ok && alg != "" {
		s.Algorithm = alg
	}
	s.Type = defaultType
	if typ, ok := tok.Header["typ"].(string); ok && typ != "" {
		s.Type = typ
	}
	return s
}

func (p *Presenter) timeClaim(t time.Time) TimeClaim {
	return TimeClaim{
		Unix:    t.Unix(),
		Time:    t,
		Display: t.In(p.cfg.Location).Format(p.layout),
	}
}

func (p *Presenter) shorten(s string) DisplayValue {
	return DisplayValue{Full: s, Short: truncate(s, p.cfg.TruncateWidth)}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// relative renders a duration as "Xd Yh".
func relative(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	days := int64(d / (24 * time.Hour))
	hours := int64((d % (24 * time.Hour)) / time.Hour)
	return fmt.Sprintf("%dd %dh", days, hours)
}
