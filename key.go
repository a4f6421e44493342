package jwtdebug

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const minRSABits = 2048

// Key is imported key material bound to one algorithm and one usage.
type Key struct {
	alg      Algorithm
	usage    KeyUsage
	kind     KeyKind
	secret   []byte
	private  crypto.Signer
	public   crypto.PublicKey
	jwk      jwk.Key
	warnings []string
}

// Algorithm returns the algorithm the key was imported for.
func (k *Key) Algorithm() Algorithm { return k.alg }

// Family returns the algorithm family of the key.
func (k *Key) Family() Family { return k.alg.Family() }

// Usage reports whether the key was imported for signing or verification.
func (k *Key) Usage() KeyUsage { return k.usage }

// Kind reports the encoding the key was supplied in.
func (k *Key) Kind() KeyKind { return k.kind }

// CanSign reports whether the key holds private or secret material.
func (k *Key) CanSign() bool {
	if k.alg == AlgNone {
		return true
	}
	return len(k.secret) > 0 || k.private != nil
}

// Warnings lists non-fatal observations such as short HMAC secrets.
func (k *Key) Warnings() []string {
	return append([]string(nil), k.warnings...)
}

// PublicJWK returns the key as a JWK without private members. HMAC keys are
// returned as oct JWKs since they have no public half. It returns nil for "none".
func (k *Key) PublicJWK() jwk.Key {
	return k.jwk
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of PublicJWK, base64url encoded.
func (k *Key) Thumbprint() (string, error) {
	if k.jwk == nil {
		return "", errorf(ErrCodeMissingKey, "algorithm %s has no key to fingerprint", k.alg)
	}
	sum, err := k.jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("compute thumbprint: %w", err)
	}
	return Base64URLEncode(sum), nil
}

// signingKey returns the value handed to a jws.Signer.
func (k *Key) signingKey() any {
	if k.Family() == FamilyHMAC {
		return k.secret
	}
	return k.private
}

// verifyingKey returns the value handed to a jws.Verifier.
func (k *Key) verifyingKey() any {
	if k.Family() == FamilyHMAC {
		return k.secret
	}
	return k.public
}

func newSecretKey(alg Algorithm, usage KeyUsage, kind KeyKind, secret []byte) (*Key, error) {
	jk, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, withCause(errorf(ErrCodeInternal, "could not represent HMAC secret as JWK"), err)
	}
	k := &Key{alg: alg, usage: usage, kind: kind, secret: secret, jwk: jk}
	if want := alg.hashSize(); len(secret) < want {
		k.warnings = append(k.warnings, fmt.Sprintf("secret is %d bytes; %s should use at least %d", len(secret), alg, want))
	}
	return k, nil
}

// newAsymmetricKey builds a Key from parsed RSA or ECDSA material. private may
// be nil for verification keys; it is dropped when usage is UsageVerify.
func newAsymmetricKey(alg Algorithm, usage KeyUsage, kind KeyKind, private crypto.Signer, public crypto.PublicKey) (*Key, error) {
	if public == nil && private != nil {
		public = private.Public()
	}
	if usage == UsageVerify {
		private = nil
	}
	jk, err := jwk.FromRaw(public)
	if err != nil {
		return nil, withCause(errorf(ErrCodeInternal, "could not represent public key as JWK"), err)
	}
	k := &Key{alg: alg, usage: usage, kind: kind, private: private, public: public, jwk: jk}
	if pub, ok := public.(*rsa.PublicKey); ok && pub.N.BitLen() < minRSABits {
		k.warnings = append(k.warnings, fmt.Sprintf("RSA key is %d bits; use at least %d", pub.N.BitLen(), minRSABits))
	}
	return k, nil
}

// checkCurve enforces ES256<->P-256, ES384<->P-384, ES512<->P-521.
func checkCurve(alg Algorithm, pub *ecdsa.PublicKey) error {
	got := pub.Curve.Params().Name
	if want := string(alg.Curve()); got != want {
		return errorf(ErrCodeKeyAlgorithmMismatch,
			"curve/algorithm mismatch: %s needs a %s key, got %s", alg, want, got)
	}
	return nil
}
