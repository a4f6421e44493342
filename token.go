package jwtdebug

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxSegments = 3

// Token is a decoded compact JWT. The signature segment is kept encoded.
type Token struct {
	Raw              string
	Header           map[string]any
	Payload          map[string]any
	HeaderSegment    string
	PayloadSegment   string
	SignatureSegment string
}

// ParseToken splits and decodes a compact token without verifying it.
func ParseToken(raw string) (*Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errorf(ErrCodeMalformedToken, "token is empty; paste a JWT (header.payload.signature)")
	}

	parts := strings.Split(raw, ".")
	switch {
	case len(parts) < 2:
		return nil, errorf(ErrCodeMalformedToken, "token must have header and payload base64url encoded, separated by a dot")
	case len(parts) > maxSegments:
		return nil, errorf(ErrCodeMalformedToken,
			"token has %d dot-separated segments; a JWT has 3 (header.payload.signature)", len(parts))
	}

	header, err := decodeSegment("header", parts[0])
	if err != nil {
		return nil, err
	}
	payload, err := decodeSegment("payload", parts[1])
	if err != nil {
		return nil, err
	}

	tok := &Token{
		Raw:            raw,
		Header:         header,
		Payload:        payload,
		HeaderSegment:  parts[0],
		PayloadSegment: parts[1],
	}
	if len(parts) == maxSegments {
		tok.SignatureSegment = parts[2]
	}
	return tok, nil
}

func decodeSegment(name, segment string) (map[string]any, error) {
	if segment == "" {
		return nil, errorf(ErrCodeMalformedToken, "%s segment is empty", name)
	}
	data, err := Base64URLDecode(segment)
	if err != nil {
		return nil, withCause(errorf(ErrCodeMalformedToken, "%s is not valid base64url", name), err)
	}
	text, ok := BytesToText(data)
	if !ok {
		return nil, errorf(ErrCodeMalformedToken, "%s does not decode to UTF-8 text", name)
	}

	value, err := decodeJSON(text)
	if err != nil {
		return nil, withCause(errorf(ErrCodeMalformedToken, "%s is not valid JSON", name), err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errorf(ErrCodeInvalidStructure, "%s must be a JSON object, got %s", name, jsonKind(value))
	}
	if len(obj) == 0 {
		return nil, errorf(ErrCodeInvalidStructure, "%s must be a JSON object with at least one member", name)
	}
	return obj, nil
}

// decodeJSON parses a single JSON value, keeping numbers as json.Number.
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return value, nil
}

func decodeObject(name, text string) (map[string]any, error) {
	value, err := decodeJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", name, err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a JSON object, got %s", name, jsonKind(value))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Algorithm returns the raw "alg" header value and whether it is a string.
func (t *Token) Algorithm() (string, bool) {
	v, ok := t.Header["alg"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SigningInput is the exact byte sequence covered by the signature.
func (t *Token) SigningInput() []byte {
	return []byte(t.HeaderSegment + "." + t.PayloadSegment)
}

// HeaderJSON pretty-prints the header.
func (t *Token) HeaderJSON() string {
	return prettyJSON(t.Header)
}

// PayloadJSON pretty-prints the payload.
func (t *Token) PayloadJSON() string {
	return prettyJSON(t.Payload)
}

func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
