package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// document is the machine-readable form of a decoded token.
type document struct {
	Header    map[string]any `json:"header" yaml:"header"`
	Payload   map[string]any `json:"payload" yaml:"payload"`
	Signature string         `json:"signature" yaml:"signature"`
}

func newDocument(tok *jwtdebug.Token) document {
	return document{
		Header:    plainObject(tok.Header),
		Payload:   plainObject(tok.Payload),
		Signature: tok.SignatureSegment,
	}
}

func writeDocument(w io.Writer, format string, doc document) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q: must be %s, %s or %s", format, outputText, outputJSON, outputYAML)
	}
}

// plainObject converts json.Number values so that YAML renders them as numbers.
func plainObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return plainObject(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

func printToken(w io.Writer, tok *jwtdebug.Token) {
	fmt.Fprintln(w, "Header:")
	fmt.Fprintln(w, tok.HeaderJSON())
	fmt.Fprintln(w, "Payload:")
	fmt.Fprintln(w, tok.PayloadJSON())
}

func printSummary(w io.Writer, s jwtdebug.Summary) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Algorithm : %s\n", s.Algorithm)
	fmt.Fprintf(w, "  Type      : %s\n", s.Type)
	if s.Subject.Full != "" {
		fmt.Fprintf(w, "  Subject   : %s\n", s.Subject.Short)
	}
	if s.Issuer.Full != "" {
		fmt.Fprintf(w, "  Issuer    : %s\n", s.Issuer.Short)
	}
	if len(s.Audience) > 0 {
		fmt.Fprintf(w, "  Audience  : %s\n", strings.Join(s.Audience, ", "))
	}
	if s.JWTID != "" {
		fmt.Fprintf(w, "  JWT ID    : %s\n", s.JWTID)
	}
	if s.IssuedAt != nil {
		fmt.Fprintf(w, "  Issued    : %s (%s)\n", s.IssuedAt.Display, s.IssuedAt.Relative)
	}
	if s.NotBefore != nil {
		fmt.Fprintf(w, "  Not before: %s (%s)\n", s.NotBefore.Display, s.NotBefore.Relative)
	}
	if s.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires   : %s (%s)\n", s.ExpiresAt.Label(), s.ExpiresAt.Relative)
	}
	if s.Claims != nil && s.Claims.Email != "" {
		fmt.Fprintf(w, "  Email     : %s\n", s.Claims.Email)
	}
	if s.Claims != nil && len(s.Claims.Scopes) > 0 {
		fmt.Fprintf(w, "  Scopes    : %s\n", strings.Join(s.Claims.Scopes, " "))
	}
	if s.Claims != nil && len(s.Claims.CustomClaims) > 0 {
		fmt.Fprintln(w, "  Custom    :")
		for _, k := range slices.Sorted(maps.Keys(s.Claims.CustomClaims)) {
			fmt.Fprintf(w, "    %s: %v\n", k, s.Claims.CustomClaims[k])
		}
	}
}

func printResult(w io.Writer, res jwtdebug.Result) {
	if res.Valid {
		fmt.Fprintf(w, "PASS  %s\n", res.Reason)
		return
	}
	fmt.Fprintf(w, "FAIL  [%s] %s\n", res.Code, res.Reason)
	if res.Expired && res.Code != jwtdebug.ErrCodeTokenExpired {
		fmt.Fprintln(w, "      note: the token is also past its exp")
	}
}
