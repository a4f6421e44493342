package jwtdebug

import (
	"crypto/elliptic"
	"crypto/x509"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportKeyNone(t *testing.T) {
	key, err := ImportKey(AlgNone, nil, UsageSign)
	require.NoError(t, err)
	assert.Equal(t, AlgNone, key.Algorithm())
	assert.True(t, key.CanSign())
	assert.Nil(t, key.PublicJWK())

	_, err = key.Thumbprint()
	requireCode(t, err, ErrCodeMissingKey)
}

func TestImportKeyTextSecret(t *testing.T) {
	key := mustImport(t, AlgHS256, TextSecret(strings.Repeat("s", 32)), UsageSign)
	assert.Equal(t, FamilyHMAC, key.Family())
	assert.Equal(t, KindTextSecret, key.Kind())
	assert.True(t, key.CanSign())
	assert.Empty(t, key.Warnings())

	short := mustImport(t, AlgHS512, TextSecret("short"), UsageVerify)
	require.Len(t, short.Warnings(), 1)
	assert.Contains(t, short.Warnings()[0], "at least 64")

	_, err := ImportKey(AlgHS256, TextSecret(""), UsageSign)
	requireCode(t, err, ErrCodeMissingKey)

	_, err = ImportKey(AlgRS256, TextSecret("secret"), UsageVerify)
	requireCode(t, err, ErrCodeKeyAlgorithmMismatch)
}

func TestImportKeyErrors(t *testing.T) {
	_, err := ImportKey("HS999", TextSecret("x"), UsageSign)
	requireCode(t, err, ErrCodeUnsupportedAlgorithm)

	_, err = ImportKey(AlgRS256, nil, UsageVerify)
	e := requireCode(t, err, ErrCodeMissingKey)
	assert.Contains(t, e.Error(), "RSA key")
}

func TestImportPEM(t *testing.T) {
	rsaPriv := newRSAKey(t)
	ecPriv := newECKey(t, elliptic.P256())

	pkcs1 := encodePEM("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(rsaPriv))
	rsaPKCS1Pub := encodePEM("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&rsaPriv.PublicKey))

	cases := []struct {
		name    string
		alg     Algorithm
		pem     string
		usage   KeyUsage
		canSign bool
	}{
		{"pkcs1 private sign", AlgRS256, pkcs1, UsageSign, true},
		{"pkcs1 private verify", AlgRS256, pkcs1, UsageVerify, false},
		{"pkcs8 rsa for pss", AlgPS384, pkcs8PEM(t, rsaPriv), UsageSign, true},
		{"pkix rsa public", AlgRS512, pkixPEM(t, &rsaPriv.PublicKey), UsageVerify, false},
		{"pkcs1 rsa public", AlgRS256, rsaPKCS1Pub, UsageVerify, false},
		{"sec1 ec private", AlgES256, sec1PEM(t, ecPriv), UsageSign, true},
		{"pkcs8 ec private", AlgES256, pkcs8PEM(t, ecPriv), UsageSign, true},
		{"pkix ec public", AlgES256, pkixPEM(t, &ecPriv.PublicKey), UsageVerify, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := mustImport(t, tc.alg, PEM(tc.pem), tc.usage)
			assert.Equal(t, tc.alg, key.Algorithm())
			assert.Equal(t, KindPEM, key.Kind())
			assert.Equal(t, tc.canSign, key.CanSign())
			require.NotNil(t, key.PublicJWK())

			thumb, err := key.Thumbprint()
			require.NoError(t, err)
			assert.Len(t, thumb, 43)
		})
	}
}

func TestImportPEMErrors(t *testing.T) {
	rsaPriv := newRSAKey(t)
	ecPriv := newECKey(t, elliptic.P384())
	pub := pkixPEM(t, &rsaPriv.PublicKey)

	cases := []struct {
		name  string
		alg   Algorithm
		pem   string
		usage KeyUsage
		code  ErrorCode
		msg   string
	}{
		{"hmac", AlgHS256, pub, UsageVerify, ErrCodeKeyAlgorithmMismatch, "PEM is not compatible with HMAC; use text secret or oct JWK"},
		{"public key for signing", AlgRS256, pub, UsageSign, ErrCodeKeyAlgorithmMismatch, "needs a private key, not a public key"},
		{"no armor", AlgRS256, "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA", UsageVerify, ErrCodeInvalidPEM, "key is not PEM"},
		{"label mismatch", AlgRS256, strings.Replace(pub, "END PUBLIC KEY", "END PRIVATE KEY", 1), UsageVerify, ErrCodeInvalidPEM, "does not match END label"},
		{"bad body", AlgRS256, "-----BEGIN PUBLIC KEY-----\n!!!!\n-----END PUBLIC KEY-----", UsageVerify, ErrCodeInvalidPEM, "not valid base64"},
		{"encrypted", AlgRS256, encodePEM("ENCRYPTED PRIVATE KEY", []byte{1, 2, 3}), UsageSign, ErrCodeInvalidPEM, "encrypted"},
		{"unknown label", AlgRS256, encodePEM("OPENSSH PRIVATE KEY", []byte{1, 2, 3}), UsageSign, ErrCodeInvalidPEM, "is not a key"},
		{"ec key for rsa", AlgRS256, sec1PEM(t, ecPriv), UsageSign, ErrCodeKeyAlgorithmMismatch, "needs an RSA key"},
		{"rsa key for ec", AlgES256, encodePEM("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(rsaPriv)), UsageSign, ErrCodeKeyAlgorithmMismatch, "needs an EC key"},
		{"pkcs8 ec for rsa", AlgPS256, pkcs8PEM(t, ecPriv), UsageSign, ErrCodeKeyAlgorithmMismatch, "is not RSA"},
		{"pkcs8 rsa for ec", AlgES384, pkcs8PEM(t, rsaPriv), UsageSign, ErrCodeKeyAlgorithmMismatch, "is not EC"},
		{"rsa public for ec", AlgES256, pub, UsageVerify, ErrCodeKeyAlgorithmMismatch, "not EC"},
		{"curve mismatch", AlgES256, sec1PEM(t, ecPriv), UsageSign, ErrCodeKeyAlgorithmMismatch, "curve/algorithm mismatch: ES256 needs a P-256 key, got P-384"},
		{"public curve mismatch", AlgES512, pkixPEM(t, &ecPriv.PublicKey), UsageVerify, ErrCodeKeyAlgorithmMismatch, "curve/algorithm mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportKey(tc.alg, PEM(tc.pem), tc.usage)
			e := requireCode(t, err, tc.code)
			assert.Contains(t, e.Error(), tc.msg)
		})
	}
}

func TestImportJWK(t *testing.T) {
	rsaPriv := newRSAKey(t)
	ec256 := newECKey(t, elliptic.P256())
	ec521 := newECKey(t, elliptic.P521())

	cases := []struct {
		name    string
		alg     Algorithm
		jwk     string
		usage   KeyUsage
		canSign bool
	}{
		{"oct", AlgHS384, `{"kty":"oct","k":"` + Base64URLEncode([]byte(strings.Repeat("k", 48))) + `"}`, UsageSign, true},
		{"rsa private sign", AlgRS256, jwkText(t, rsaPriv), UsageSign, true},
		{"rsa private verify strips d", AlgPS256, jwkText(t, rsaPriv), UsageVerify, false},
		{"rsa public", AlgRS384, jwkText(t, &rsaPriv.PublicKey), UsageVerify, false},
		{"ec private", AlgES256, jwkText(t, ec256), UsageSign, true},
		{"ec p-521 public", AlgES512, jwkText(t, &ec521.PublicKey), UsageVerify, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := mustImport(t, tc.alg, JWK(tc.jwk), tc.usage)
			assert.Equal(t, KindJWK, key.Kind())
			assert.Equal(t, tc.canSign, key.CanSign())
			require.NotNil(t, key.PublicJWK())
		})
	}
}

func TestImportJWKThumbprintMatchesAcrossFormats(t *testing.T) {
	rsaPriv := newRSAKey(t)

	fromJWK := mustImport(t, AlgRS256, JWK(jwkText(t, rsaPriv)), UsageVerify)
	fromPEM := mustImport(t, AlgRS256, PEM(pkixPEM(t, &rsaPriv.PublicKey)), UsageVerify)

	a, err := fromJWK.Thumbprint()
	require.NoError(t, err)
	b, err := fromPEM.Thumbprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestImportJWKErrors(t *testing.T) {
	rsaPriv := newRSAKey(t)
	ec384 := newECKey(t, elliptic.P384())

	rsaNoModulus := jwkMembers(t, &rsaPriv.PublicKey)
	delete(rsaNoModulus, "n")
	delete(rsaNoModulus, "e")

	withAlg := jwkMembers(t, &rsaPriv.PublicKey)
	withAlg["alg"] = "RS512"

	encKey := jwkMembers(t, &rsaPriv.PublicKey)
	encKey["use"] = "enc"

	noPrimes := jwkMembers(t, rsaPriv)
	for _, name := range []string{"p", "q", "dp", "dq", "qi"} {
		delete(noPrimes, name)
	}

	cases := []struct {
		name     string
		alg      Algorithm
		jwk      string
		usage    KeyUsage
		code     ErrorCode
		msg      string
		problems []string
	}{
		{"not json", AlgRS256, `{"kty":`, UsageVerify, ErrCodeInvalidJWK, "JWK is not valid JSON", nil},
		{"null", AlgRS256, `null`, UsageVerify, ErrCodeInvalidJWK, "must be a JSON object", nil},
		{"jwk set", AlgRS256, `{"keys":[]}`, UsageVerify, ErrCodeInvalidJWK, "JWK Set", nil},
		{"missing kty", AlgRS256, `{"n":"x","e":"AQAB"}`, UsageVerify, ErrCodeInvalidJWK, "missing 'kty'", nil},
		{"missing n and e", AlgRS256, mustJSON(t, rsaNoModulus), UsageVerify, ErrCodeInvalidJWK, "RSA JWK is incomplete",
			[]string{"RSA JWK missing 'n'", "RSA JWK missing 'e'"}},
		{"oct for rsa", AlgRS256, `{"kty":"oct","k":"c2VjcmV0"}`, UsageVerify, ErrCodeKeyAlgorithmMismatch, "RS256 needs an RSA key", nil},
		{"rsa for hmac", AlgHS256, jwkText(t, &rsaPriv.PublicKey), UsageVerify, ErrCodeKeyAlgorithmMismatch, "oct JWK", nil},
		{"okp", AlgES256, `{"kty":"OKP","crv":"Ed25519","x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`, UsageVerify, ErrCodeKeyAlgorithmMismatch, "OKP keys", nil},
		{"enc use", AlgRS256, mustJSON(t, encKey), UsageVerify, ErrCodeInvalidJWK, "use \"enc\"", nil},
		{"alg mismatch", AlgRS256, mustJSON(t, withAlg), UsageVerify, ErrCodeKeyAlgorithmMismatch, "bound to RS512", nil},
		{"curve mismatch", AlgES256, jwkText(t, ec384), UsageSign, ErrCodeKeyAlgorithmMismatch, "curve/algorithm mismatch", nil},
		{"public for signing", AlgRS256, jwkText(t, &rsaPriv.PublicKey), UsageSign, ErrCodeKeyAlgorithmMismatch, "needs a private key, not a public key", nil},
		{"rsa without primes", AlgRS256, mustJSON(t, noPrimes), UsageSign, ErrCodeInvalidJWK, "RSA private JWK is incomplete",
			[]string{"RSA JWK missing 'p'", "RSA JWK missing 'q'"}},
		{"oct missing k", AlgHS256, `{"kty":"oct"}`, UsageSign, ErrCodeInvalidJWK, "oct JWK missing 'k'", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportKey(tc.alg, JWK(tc.jwk), tc.usage)
			e := requireCode(t, err, tc.code)
			assert.Contains(t, e.Error(), tc.msg)
			if tc.problems != nil {
				assert.Equal(t, tc.problems, e.Problems)
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, s := range []string{"none", "None", "NONE"} {
		alg, err := ParseAlgorithm(s)
		require.NoError(t, err)
		assert.Equal(t, AlgNone, alg)
	}

	alg, err := ParseAlgorithm("ES384")
	require.NoError(t, err)
	assert.Equal(t, FamilyECDSA, alg.Family())

	_, err = ParseAlgorithm("")
	requireCode(t, err, ErrCodeMissingAlgorithm)

	_, err = ParseAlgorithm("EdDSA")
	requireCode(t, err, ErrCodeUnsupportedAlgorithm)

	_, err = ParseAlgorithm("hs256")
	requireCode(t, err, ErrCodeUnsupportedAlgorithm)

	assert.Len(t, SupportedAlgorithms(), 13)
}
