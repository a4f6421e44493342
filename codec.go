package jwtdebug

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

var base64URLToStd = strings.NewReplacer("-", "+", "_", "/")

// Base64URLEncode encodes data with the URL-safe alphabet and no padding,
// as required for JWS segments.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes a base64url segment. Padding is optional; standard
// alphabet characters are tolerated the same way browsers' atob does after
// substitution.
func Base64URLDecode(s string) ([]byte, error) {
	s = strings.TrimRight(base64URLToStd.Replace(s), "=")
	switch len(s) % 4 {
	case 1:
		return nil, errorf(ErrCodeDecodeError, "invalid base64url encoding: length %d cannot be padded", len(s))
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, withCause(errorf(ErrCodeDecodeError, "invalid base64url encoding at byte %d", int64(corrupt)), err)
		}
		return nil, withCause(errorf(ErrCodeDecodeError, "invalid base64url encoding"), err)
	}
	return out, nil
}

// BytesToText converts bytes to a string. Invalid UTF-8 sequences are replaced
// with U+FFFD and reported through the boolean result.
func BytesToText(data []byte) (string, bool) {
	if utf8.Valid(data) {
		return string(data), true
	}
	return strings.ToValidUTF8(string(data), "�"), false
}

// TextToBytes returns the UTF-8 encoding of s.
func TextToBytes(s string) []byte {
	return []byte(s)
}
