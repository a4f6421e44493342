package jwtdebug

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// privateJWKMembers are stripped before importing a key for verification.
var privateJWKMembers = []string{"d", "p", "q", "dp", "dq", "qi", "oth"}

func importJWK(alg Algorithm, text string, usage KeyUsage) (*Key, error) {
	var members map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &members); err != nil {
		return nil, withCause(errorf(ErrCodeInvalidJWK, "JWK is not valid JSON"), err)
	}
	if members == nil {
		return nil, errorf(ErrCodeInvalidJWK, "JWK must be a JSON object")
	}
	if _, ok := members["keys"]; ok {
		return nil, errorf(ErrCodeInvalidJWK, "this is a JWK Set; paste a single key from its \"keys\" array")
	}

	if err := checkJWKMembers(alg, members, usage); err != nil {
		return nil, err
	}

	if usage == UsageVerify {
		for _, name := range privateJWKMembers {
			delete(members, name)
		}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return nil, withCause(errorf(ErrCodeInvalidJWK, "JWK could not be re-encoded"), err)
	}
	parsed, err := jwk.ParseKey(data)
	if err != nil {
		return nil, withCause(errorf(ErrCodeInvalidJWK, "JWK could not be imported"), err)
	}
	return keyFromJWK(alg, usage, parsed)
}

// checkJWKMembers validates kty, use, alg, curve and the members each key type
// needs, so that problems are reported by name rather than by the parser.
func checkJWKMembers(alg Algorithm, members map[string]any, usage KeyUsage) error {
	kty, _ := members["kty"].(string)
	if kty == "" {
		return errorf(ErrCodeInvalidJWK, "JWK is missing 'kty'")
	}

	want := requiredKeyType(alg.Family())
	if jwa.KeyType(kty) != want {
		if jwa.KeyType(kty) == jwa.OKP {
			return errorf(ErrCodeKeyAlgorithmMismatch, "OKP keys (Ed25519/X25519) are not supported; %s needs kty %q", alg, want)
		}
		return errorf(ErrCodeKeyAlgorithmMismatch, "%s needs %s; got a JWK with kty %q", alg, describeKeyType(want), kty)
	}
	if use, _ := members["use"].(string); use == "enc" {
		return errorf(ErrCodeInvalidJWK, "JWK has use \"enc\"; signature keys need use \"sig\" or no use")
	}
	if bound, _ := members["alg"].(string); bound != "" && bound != string(alg) {
		return errorf(ErrCodeKeyAlgorithmMismatch, "JWK is bound to %s but the algorithm is %s", bound, alg)
	}

	var required []string
	switch want {
	case jwa.OctetSeq:
		required = []string{"k"}
	case jwa.RSA:
		required = []string{"n", "e"}
	case jwa.EC:
		required = []string{"crv", "x", "y"}
	}
	var missing []string
	for _, name := range required {
		if s, _ := members[name].(string); s == "" {
			missing = append(missing, fmt.Sprintf("%s JWK missing '%s'", kty, name))
		}
	}
	if len(missing) > 0 {
		return problems(ErrCodeInvalidJWK, fmt.Sprintf("%s JWK is incomplete", kty), missing)
	}

	if want == jwa.EC {
		crv, _ := members["crv"].(string)
		if crv != string(alg.Curve()) {
			return errorf(ErrCodeKeyAlgorithmMismatch,
				"curve/algorithm mismatch: %s needs crv %s, got %s", alg, alg.Curve(), crv)
		}
	}
	if usage == UsageSign && want != jwa.OctetSeq {
		if d, _ := members["d"].(string); d == "" {
			return errorf(ErrCodeKeyAlgorithmMismatch,
				"%s signing needs a private key, not a public key; the JWK has no 'd'", alg)
		}
	}
	if usage == UsageSign && want == jwa.RSA {
		var primes []string
		for _, name := range []string{"p", "q"} {
			if s, _ := members[name].(string); s == "" {
				primes = append(primes, fmt.Sprintf("RSA JWK missing '%s'", name))
			}
		}
		if len(primes) > 0 {
			return problems(ErrCodeInvalidJWK, "RSA private JWK is incomplete; signing needs the primes", primes)
		}
	}
	return nil
}

func keyFromJWK(alg Algorithm, usage KeyUsage, parsed jwk.Key) (*Key, error) {
	var raw any
	if err := parsed.Raw(&raw); err != nil {
		return nil, withCause(errorf(ErrCodeInvalidJWK, "JWK key material is invalid"), err)
	}

	switch v := raw.(type) {
	case []byte:
		if len(v) == 0 {
			return nil, errorf(ErrCodeMissingKey, "oct JWK 'k' decodes to an empty secret")
		}
		return newSecretKey(alg, usage, KindJWK, v)
	case *rsa.PrivateKey:
		return newAsymmetricKey(alg, usage, KindJWK, v, nil)
	case *rsa.PublicKey:
		return newAsymmetricKey(alg, usage, KindJWK, nil, v)
	case *ecdsa.PrivateKey:
		if err := checkCurve(alg, &v.PublicKey); err != nil {
			return nil, err
		}
		return newAsymmetricKey(alg, usage, KindJWK, v, nil)
	case *ecdsa.PublicKey:
		if err := checkCurve(alg, v); err != nil {
			return nil, err
		}
		return newAsymmetricKey(alg, usage, KindJWK, nil, v)
	default:
		return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s cannot use a %T key", alg, raw)
	}
}

func requiredKeyType(family Family) jwa.KeyType {
	switch family {
	case FamilyHMAC:
		return jwa.OctetSeq
	case FamilyRSA, FamilyRSAPSS:
		return jwa.RSA
	case FamilyECDSA:
		return jwa.EC
	default:
		return jwa.InvalidKeyType
	}
}

func describeKeyType(kty jwa.KeyType) string {
	switch kty {
	case jwa.OctetSeq:
		return "an oct JWK (or a text secret)"
	case jwa.RSA:
		return "an RSA key"
	case jwa.EC:
		return "an EC key"
	default:
		return string(kty)
	}
}
