package jwtdebug

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Claims represents normalized JWT claims decoded from a payload.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string

	Email        string
	Scopes       []string
	CustomClaims map[string]any
}

var registeredClaims = map[string]struct{}{
	"sub": {}, "iss": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

// ExtractClaims reads registered claims from a payload and keeps everything
// else in CustomClaims. Claims of an unexpected type are left zero.
func ExtractClaims(payload map[string]any) *Claims {
	claims := &Claims{
		Subject:  stringClaim(payload, "sub"),
		Issuer:   stringClaim(payload, "iss"),
		Audience: normalizeStrings(payload["aud"]),
		JWTID:    stringClaim(payload, "jti"),
	}
	claims.ExpiresAt, _ = timeClaim(payload, "exp")
	claims.NotBefore, _ = timeClaim(payload, "nbf")
	claims.IssuedAt, _ = timeClaim(payload, "iat")

	for k, v := range payload {
		if _, ok := registeredClaims[k]; ok {
			continue
		}
		if claims.CustomClaims == nil {
			claims.CustomClaims = make(map[string]any)
		}
		claims.CustomClaims[k] = v
	}
	populateKnownClaims(claims)
	return claims
}

func populateKnownClaims(claims *Claims) {
	if claims.CustomClaims == nil {
		return
	}
	if email, ok := claims.CustomClaims["email"].(string); ok {
		claims.Email = strings.ToLower(email)
	}
	if scopes, ok := claims.CustomClaims["scopes"]; ok {
		claims.Scopes = normalizeStrings(scopes)
	} else if scope, ok := claims.CustomClaims["scope"].(string); ok {
		claims.Scopes = strings.Fields(scope)
	}
}

func stringClaim(payload map[string]any, name string) string {
	s, _ := payload[name].(string)
	return s
}

func normalizeStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
		return nil
	default:
		return nil
	}
}

// timeClaim decodes a NumericDate claim. It reports false when the claim is
// absent or not a number.
func timeClaim(payload map[string]any, name string) (time.Time, bool) {
	secs, ok := numericClaim(payload[name])
	if !ok {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), true
}

func numericClaim(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
