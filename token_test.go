package jwtdebug

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tok, err := ParseToken("  " + sampleToken + "\n")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"alg": "HS256", "typ": "JWT"}, tok.Header)
	assert.Equal(t, map[string]any{"sub": "1234567890"}, tok.Payload)
	assert.Equal(t, "dozjgNryP4J3jVmNHl0w5N_XgL0n3I9PlFUP0THsR8U", tok.SignatureSegment)
	assert.Equal(t, sampleToken, tok.Raw)

	alg, ok := tok.Algorithm()
	assert.True(t, ok)
	assert.Equal(t, "HS256", alg)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0", string(tok.SigningInput()))
	assert.Equal(t, "{\n  \"sub\": \"1234567890\"\n}", tok.PayloadJSON())
}

func TestParseTokenKeepsNumberPrecision(t *testing.T) {
	raw := Base64URLEncode([]byte(`{"alg":"none"}`)) + "." + Base64URLEncode([]byte(`{"big":12345678901234567890,"iat":1516239022}`)) + "."
	tok, err := ParseToken(raw)
	require.NoError(t, err)

	assert.Equal(t, json.Number("12345678901234567890"), tok.Payload["big"])
	assert.Empty(t, tok.SignatureSegment)
	assert.Contains(t, tok.PayloadJSON(), "12345678901234567890")
}

func TestParseTokenTwoSegments(t *testing.T) {
	tok, err := ParseToken("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0")
	require.NoError(t, err)
	assert.Empty(t, tok.SignatureSegment)
}

func TestParseTokenErrors(t *testing.T) {
	header := Base64URLEncode([]byte(`{"alg":"HS256"}`))
	payload := Base64URLEncode([]byte(`{"sub":"x"}`))

	cases := []struct {
		name  string
		input string
		code  ErrorCode
		msg   string
	}{
		{"empty", "   ", ErrCodeMalformedToken, "token is empty"},
		{"one segment", "abc", ErrCodeMalformedToken, "header and payload"},
		{"six segments", "not.a.jwt.at.all.period", ErrCodeMalformedToken, "6 dot-separated segments"},
		{"empty header", "." + payload + ".", ErrCodeMalformedToken, "header segment is empty"},
		{"bad base64", "a$b." + payload, ErrCodeMalformedToken, "header is not valid base64url"},
		{"bad json", Base64URLEncode([]byte("{nope")) + "." + payload, ErrCodeMalformedToken, "header is not valid JSON"},
		{"trailing json", Base64URLEncode([]byte(`{"a":1} {}`)) + "." + payload, ErrCodeMalformedToken, "header is not valid JSON"},
		{"invalid utf8", Base64URLEncode([]byte{'{', 0xff, '}'}) + "." + payload, ErrCodeMalformedToken, "UTF-8"},
		{"array header", Base64URLEncode([]byte(`[1,2]`)) + "." + payload, ErrCodeInvalidStructure, "got array"},
		{"null payload", header + "." + Base64URLEncode([]byte(`null`)), ErrCodeInvalidStructure, "payload must be a JSON object, got null"},
		{"empty payload", header + "." + Base64URLEncode([]byte(`{}`)), ErrCodeInvalidStructure, "at least one member"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.input)
			e := requireCode(t, err, tc.code)
			assert.Contains(t, e.Error(), tc.msg)
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrCodeInternal, CodeOf(assert.AnError))

	_, err := ParseToken("")
	assert.Equal(t, ErrCodeMalformedToken, CodeOf(err))
}
