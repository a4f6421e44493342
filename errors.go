package jwtdebug

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents engine error categories.
type ErrorCode string

const (
	ErrCodeMalformedToken       ErrorCode = "malformed_token"
	ErrCodeInvalidStructure     ErrorCode = "invalid_structure"
	ErrCodeInvalidJWK           ErrorCode = "invalid_jwk"
	ErrCodeInvalidPEM           ErrorCode = "invalid_pem"
	ErrCodeKeyAlgorithmMismatch ErrorCode = "key_algorithm_mismatch"
	ErrCodeMissingAlgorithm     ErrorCode = "missing_algorithm"
	ErrCodeUnsupportedAlgorithm ErrorCode = "unsupported_algorithm"
	ErrCodeMissingKey           ErrorCode = "missing_key"
	ErrCodeUnsignedToken        ErrorCode = "unsigned_token"
	ErrCodeSignatureInvalid     ErrorCode = "signature_invalid"
	ErrCodeTokenExpired         ErrorCode = "token_expired"
	ErrCodeTokenNotYetValid     ErrorCode = "token_not_yet_valid"
	ErrCodeSigningError         ErrorCode = "signing_error"
	ErrCodeDecodeError          ErrorCode = "decode_error"
	ErrCodeInternal             ErrorCode = "internal_error"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeMalformedToken:       "Malformed token",
	ErrCodeInvalidStructure:     "Invalid token structure",
	ErrCodeInvalidJWK:           "Invalid JWK",
	ErrCodeInvalidPEM:           "Invalid PEM",
	ErrCodeKeyAlgorithmMismatch: "Key does not match algorithm",
	ErrCodeMissingAlgorithm:     "Missing algorithm",
	ErrCodeUnsupportedAlgorithm: "Unsupported algorithm",
	ErrCodeMissingKey:           "Missing key",
	ErrCodeUnsignedToken:        "Unsigned token",
	ErrCodeSignatureInvalid:     "Invalid signature",
	ErrCodeTokenExpired:         "Token expired",
	ErrCodeTokenNotYetValid:     "Token not yet valid",
	ErrCodeSigningError:         "Signing failed",
	ErrCodeDecodeError:          "Decode error",
	ErrCodeInternal:             "Internal error",
}

// Error wraps engine errors with a stable code and an actionable message.
// Problems lists individual validation failures when more than one was found.
type Error struct {
	Code     ErrorCode
	Message  string
	Problems []string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if len(e.Problems) > 0 {
		base = base + ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// errorf builds an error whose message is the given sentence.
func errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func withCause(e *Error, err error) *Error {
	e.Err = err
	return e
}

func problems(code ErrorCode, msg string, list []string) *Error {
	return &Error{Code: code, Message: msg, Problems: list}
}

// CodeOf returns the ErrorCode carried by err, or ErrCodeInternal when err
// is not an engine error. It returns "" for a nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
