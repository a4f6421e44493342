package jwtdebug

import (
	"maps"
	"time"
)

// Sample holds the header and payload an empty editor starts from.
type Sample struct {
	Header  map[string]any
	Payload map[string]any
}

// HeaderJSON renders the sample header as indented JSON.
func (s Sample) HeaderJSON() string {
	return prettyJSON(s.Header)
}

// PayloadJSON renders the sample payload as indented JSON.
func (s Sample) PayloadJSON() string {
	return prettyJSON(s.Payload)
}

// DefaultSample returns the starting input for encode mode, issued at now.
// A zero now uses the current time.
func DefaultSample(alg Algorithm, now time.Time) Sample {
	if alg == "" {
		alg = AlgHS256
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Sample{
		Header: map[string]any{
			"alg": string(alg),
			"typ": defaultType,
		},
		Payload: map[string]any{
			"sub":  "1234567890",
			"name": "John Doe",
			"iat":  now.Unix(),
		},
	}
}

// WithClaims returns a copy of the sample with extra payload claims.
func (s Sample) WithClaims(claims map[string]any) Sample {
	out := Sample{Header: maps.Clone(s.Header), Payload: maps.Clone(s.Payload)}
	if out.Payload == nil {
		out.Payload = make(map[string]any, len(claims))
	}
	maps.Copy(out.Payload, claims)
	return out
}
