package jwtdebug

import (
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

// Algorithm is a JWS "alg" identifier.
type Algorithm string

const (
	AlgNone  Algorithm = "none"
	AlgHS256 Algorithm = "HS256"
	AlgHS384 Algorithm = "HS384"
	AlgHS512 Algorithm = "HS512"
	AlgRS256 Algorithm = "RS256"
	AlgRS384 Algorithm = "RS384"
	AlgRS512 Algorithm = "RS512"
	AlgPS256 Algorithm = "PS256"
	AlgPS384 Algorithm = "PS384"
	AlgPS512 Algorithm = "PS512"
	AlgES256 Algorithm = "ES256"
	AlgES384 Algorithm = "ES384"
	AlgES512 Algorithm = "ES512"
)

// Family groups algorithms that share key material requirements.
type Family string

const (
	FamilyNone    Family = "none"
	FamilyHMAC    Family = "HMAC"
	FamilyRSA     Family = "RSA"
	FamilyRSAPSS  Family = "RSA-PSS"
	FamilyECDSA   Family = "ECDSA"
	FamilyUnknown Family = "unknown"
)

var supportedAlgorithms = []Algorithm{
	AlgNone,
	AlgHS256, AlgHS384, AlgHS512,
	AlgRS256, AlgRS384, AlgRS512,
	AlgPS256, AlgPS384, AlgPS512,
	AlgES256, AlgES384, AlgES512,
}

// SupportedAlgorithms lists every algorithm the engine can sign or verify.
func SupportedAlgorithms() []Algorithm {
	return append([]Algorithm(nil), supportedAlgorithms...)
}

// ParseAlgorithm validates an "alg" value. Matching is case-sensitive except
// for "none", which is normalized so that "None" or "NONE" cannot slip past
// unsigned-token checks.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errorf(ErrCodeMissingAlgorithm, "algorithm is empty; set \"alg\" to one of %s", algorithmList())
	}
	if strings.EqualFold(s, string(AlgNone)) {
		return AlgNone, nil
	}
	alg := Algorithm(s)
	if alg.Family() == FamilyUnknown {
		return "", errorf(ErrCodeUnsupportedAlgorithm, "algorithm %q is not supported; use one of %s", s, algorithmList())
	}
	return alg, nil
}

// Family reports the algorithm family, or FamilyUnknown.
func (a Algorithm) Family() Family {
	switch a {
	case AlgNone:
		return FamilyNone
	case AlgHS256, AlgHS384, AlgHS512:
		return FamilyHMAC
	case AlgRS256, AlgRS384, AlgRS512:
		return FamilyRSA
	case AlgPS256, AlgPS384, AlgPS512:
		return FamilyRSAPSS
	case AlgES256, AlgES384, AlgES512:
		return FamilyECDSA
	default:
		return FamilyUnknown
	}
}

// Curve returns the JWK curve name an ECDSA algorithm requires, or "".
func (a Algorithm) Curve() jwa.EllipticCurveAlgorithm {
	switch a {
	case AlgES256:
		return jwa.P256
	case AlgES384:
		return jwa.P384
	case AlgES512:
		return jwa.P521
	default:
		return ""
	}
}

// hashSize is the digest size in bytes; used for HMAC secret length hints.
func (a Algorithm) hashSize() int {
	switch {
	case strings.HasSuffix(string(a), "256"):
		return 32
	case strings.HasSuffix(string(a), "384"):
		return 48
	case strings.HasSuffix(string(a), "512"):
		return 64
	default:
		return 0
	}
}

// usesRSAKey reports whether both families consume RSA key material.
func (f Family) usesRSAKey() bool {
	return f == FamilyRSA || f == FamilyRSAPSS
}

// keyCompatible reports whether key material imported for family f can serve other.
func (f Family) keyCompatible(other Family) bool {
	if f == other {
		return true
	}
	return f.usesRSAKey() && other.usesRSAKey()
}

func (a Algorithm) jwa() jwa.SignatureAlgorithm {
	if a == AlgNone {
		return jwa.NoSignature
	}
	return jwa.SignatureAlgorithm(a)
}

func algorithmList() string {
	names := make([]string, len(supportedAlgorithms))
	for i, alg := range supportedAlgorithms {
		names[i] = string(alg)
	}
	return strings.Join(names, ", ")
}
