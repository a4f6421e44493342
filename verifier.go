package jwtdebug

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Result is the outcome of Verify. It is always populated; Verify does not
// return errors or panic.
type Result struct {
	Valid     bool
	Code      ErrorCode
	Reason    string
	Algorithm Algorithm
	Token     *Token
	// Expired is set when the token's exp has passed, even if another
	// failure (such as a bad signature) was reported instead.
	Expired bool
	Err     error
}

// Verify checks the token's structure, algorithm, signature and time claims
// in that order. The token's algorithm must be allowed for key: by default
// only the algorithm the key was imported for is accepted.
func Verify(token string, key *Key, opts ...VerifyOption) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(res, newError(ErrCodeInternal, fmt.Errorf("verification aborted: %v", r)))
		}
	}()
	o := newVerifyOptions(opts)

	tok, err := ParseToken(token)
	if err != nil {
		return failed(res, err)
	}
	res.Token = tok

	algText, isString := tok.Algorithm()
	if !isString {
		if _, present := tok.Header["alg"]; present {
			return failed(res, errorf(ErrCodeMissingAlgorithm, "header \"alg\" must be a string, got %s", jsonKind(tok.Header["alg"])))
		}
		return failed(res, errorf(ErrCodeMissingAlgorithm, "header has no \"alg\"; the signing algorithm is unknown"))
	}
	alg, err := ParseAlgorithm(algText)
	if err != nil {
		return failed(res, err)
	}
	res.Algorithm = alg
	res.Expired = isExpired(tok, o)

	if alg == AlgNone {
		return failed(res, errorf(ErrCodeUnsignedToken, "unsigned token (alg: none); it carries no signature, do not trust it"))
	}
	if key == nil {
		return failed(res, errorf(ErrCodeMissingKey, "%s tokens need %s to verify", alg, expectedMaterial(alg.Family(), UsageVerify)))
	}
	if err := checkAllowed(alg, key, o.allowed); err != nil {
		return failed(res, err)
	}

	if tok.SignatureSegment == "" {
		return failed(res, errorf(ErrCodeSignatureInvalid, "token has no signature segment; %s tokens must be signed", alg))
	}
	signature, err := Base64URLDecode(tok.SignatureSegment)
	if err != nil {
		return failed(res, withCause(errorf(ErrCodeDecodeError, "signature segment is not valid base64url"), err))
	}
	if err := verifySignature(alg, tok.SigningInput(), signature, key); err != nil {
		return failed(res, err)
	}

	if err := validateTimeClaims(tok, o); err != nil {
		return failed(res, err)
	}

	res.Valid = true
	res.Reason = fmt.Sprintf("signature verified with %s", alg)
	return res
}

func failed(res Result, err error) Result {
	res.Valid = false
	res.Code = CodeOf(err)
	res.Reason = err.Error()
	res.Err = err
	return res
}

// checkAllowed rejects algorithm confusion before any cryptography runs.
func checkAllowed(alg Algorithm, key *Key, allowed []Algorithm) error {
	if key.Algorithm() == AlgNone {
		return errorf(ErrCodeKeyAlgorithmMismatch, "token declares %s but no key material was imported", alg)
	}
	if !slices.Contains(allowed, key.Algorithm()) {
		allowed = append([]Algorithm{key.Algorithm()}, allowed...)
	}
	if !slices.Contains(allowed, alg) {
		return errorf(ErrCodeKeyAlgorithmMismatch,
			"token declares %s but this key only accepts %s", alg, joinAlgorithms(allowed))
	}
	if !key.Family().keyCompatible(alg.Family()) {
		return errorf(ErrCodeKeyAlgorithmMismatch,
			"token declares %s (%s) but the key was imported for %s (%s)", alg, alg.Family(), key.Algorithm(), key.Family())
	}
	if alg.Family() == FamilyECDSA {
		pub, ok := key.public.(*ecdsa.PublicKey)
		if !ok {
			return errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an EC key", alg)
		}
		if err := checkCurve(alg, pub); err != nil {
			return err
		}
	}
	return nil
}

func verifySignature(alg Algorithm, input, signature []byte, key *Key) error {
	verifier, err := jws.NewVerifier(alg.jwa())
	if err != nil {
		return withCause(errorf(ErrCodeUnsupportedAlgorithm, "algorithm %s cannot be verified", alg), err)
	}
	if err := verifier.Verify(input, signature, key.verifyingKey()); err != nil {
		hint := "check that the key is the public half of the signing key"
		if alg.Family() == FamilyHMAC {
			hint = "check the secret; it must be byte-for-byte the one used to sign"
		}
		return withCause(errorf(ErrCodeSignatureInvalid, "signature does not match; %s", hint), err)
	}
	return nil
}

// timeClaims copies exp and nbf into a jwx token so that its validators can
// be used. iat is left out on purpose: it is informational only.
func timeClaims(tok *Token) (jwt.Token, error) {
	claims := jwt.New()
	for _, name := range []string{jwt.ExpirationKey, jwt.NotBeforeKey} {
		v, ok := tok.Payload[name]
		if !ok || v == nil {
			continue
		}
		at, ok := timeClaim(tok.Payload, name)
		if !ok {
			return nil, errorf(ErrCodeInvalidStructure, "%q must be a NumericDate (seconds since epoch), got %s", name, jsonKind(v))
		}
		if err := claims.Set(name, at); err != nil {
			return nil, withCause(errorf(ErrCodeInvalidStructure, "%q must be a NumericDate (seconds since epoch)", name), err)
		}
	}
	return claims, nil
}

func validateTimeClaims(tok *Token, o verifyOptions) error {
	claims, err := timeClaims(tok)
	if err != nil {
		return err
	}
	// jwx skips exp when it is 0, so expiry is decided here.
	if expiredAt(claims, o) {
		return errorf(ErrCodeTokenExpired,
			"token expired at %s; the signature is valid but the token must not be accepted", formatClaimTime(claims.Expiration()))
	}
	err = jwt.Validate(claims,
		jwt.WithClock(jwt.ClockFunc(o.clock)),
		jwt.WithAcceptableSkew(o.skew),
	)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return withCause(errorf(ErrCodeTokenExpired,
			"token expired at %s; the signature is valid but the token must not be accepted", formatClaimTime(claims.Expiration())), err)
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return withCause(errorf(ErrCodeTokenNotYetValid,
			"token is not valid before %s", formatClaimTime(claims.NotBefore())), err)
	default:
		if mapped := classifyValidationError(err); mapped != nil {
			return mapped
		}
		return withCause(errorf(ErrCodeInvalidStructure, "time claims could not be validated"), err)
	}
}

func isExpired(tok *Token, o verifyOptions) bool {
	claims, err := timeClaims(tok)
	if err != nil {
		return false
	}
	return expiredAt(claims, o)
}

// expiredAt reports whether exp, when present, is at or before now minus skew.
func expiredAt(claims jwt.Token, o verifyOptions) bool {
	if _, ok := claims.Get(jwt.ExpirationKey); !ok {
		return false
	}
	return !o.clock().Before(claims.Expiration().Add(o.skew))
}

func classifyValidationError(err error) error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "token expired") || strings.Contains(lower, `"exp" not satisfied`):
		return withCause(errorf(ErrCodeTokenExpired, "token expired; the signature is valid but the token must not be accepted"), err)
	case strings.Contains(lower, `"nbf" not satisfied`):
		return withCause(errorf(ErrCodeTokenNotYetValid, "token is not valid yet"), err)
	}
	return nil
}

func formatClaimTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func joinAlgorithms(algs []Algorithm) string {
	names := make([]string, len(algs))
	for i, alg := range algs {
		names[i] = string(alg)
	}
	return strings.Join(names, ", ")
}
