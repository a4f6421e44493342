package jwtdebug

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// PEM block labels recognised by the importer.
const (
	pemPublicKey      = "PUBLIC KEY"
	pemRSAPublicKey   = "RSA PUBLIC KEY"
	pemCertificate    = "CERTIFICATE"
	pemRSAPrivateKey  = "RSA PRIVATE KEY"
	pemECPrivateKey   = "EC PRIVATE KEY"
	pemPrivateKey     = "PRIVATE KEY"
	pemEncryptedPKCS8 = "ENCRYPTED PRIVATE KEY"
)

var pemArmor = regexp.MustCompile(`(?s)-----BEGIN ([A-Z0-9 ]+)-----.+?-----END ([A-Z0-9 ]+)-----`)

func importPEM(alg Algorithm, text string, usage KeyUsage) (*Key, error) {
	family := alg.Family()
	if family == FamilyHMAC {
		return nil, errorf(ErrCodeKeyAlgorithmMismatch, "PEM is not compatible with HMAC; use text secret or oct JWK")
	}

	block, err := decodePEMBlock(text)
	if err != nil {
		return nil, err
	}
	armored := pem.EncodeToMemory(block)

	switch block.Type {
	case pemPublicKey, pemRSAPublicKey, pemCertificate:
		if usage == UsageSign {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch,
				"%s signing needs a private key, not a public key; public keys are for verification only", alg)
		}
		return importPEMPublic(alg, block.Type, armored)
	case pemRSAPrivateKey:
		if !family.usesRSAKey() {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an EC key; this PEM holds an RSA private key (PKCS#1)", alg)
		}
		return importRSAPrivate(alg, usage, armored, "PKCS#1")
	case pemECPrivateKey:
		if family != FamilyECDSA {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an RSA key; this PEM holds an EC private key", alg)
		}
		return importECPrivate(alg, usage, armored, "SEC1")
	case pemPrivateKey:
		// PKCS#8 does not name the key type in its label; the algorithm decides.
		if family == FamilyECDSA {
			return importECPrivate(alg, usage, armored, "PKCS#8")
		}
		return importRSAPrivate(alg, usage, armored, "PKCS#8")
	case pemEncryptedPKCS8:
		return nil, errorf(ErrCodeInvalidPEM, "encrypted private keys are not supported; decrypt the key first")
	default:
		return nil, errorf(ErrCodeInvalidPEM, "PEM block %q is not a key; expected PUBLIC KEY, RSA PRIVATE KEY, EC PRIVATE KEY or PRIVATE KEY", block.Type)
	}
}

func decodePEMBlock(text string) (*pem.Block, error) {
	text = strings.TrimSpace(text)
	m := pemArmor.FindStringSubmatch(text)
	if m == nil {
		return nil, errorf(ErrCodeInvalidPEM, "key is not PEM; expected -----BEGIN ...----- and -----END ...----- lines")
	}
	if m[1] != m[2] {
		return nil, errorf(ErrCodeInvalidPEM, "PEM BEGIN label %q does not match END label %q", m[1], m[2])
	}
	block, _ := pem.Decode([]byte(m[0]))
	if block == nil {
		return nil, errorf(ErrCodeInvalidPEM, "PEM body between BEGIN and END is not valid base64")
	}
	return block, nil
}

func importRSAPrivate(alg Algorithm, usage KeyUsage, armored []byte, format string) (*Key, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(armored)
	if err != nil {
		if errors.Is(err, jwt.ErrNotRSAPrivateKey) {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an RSA key; this %s key is not RSA", alg, format)
		}
		return nil, withCause(errorf(ErrCodeInvalidPEM, "could not parse %s RSA private key", format), err)
	}
	return newAsymmetricKey(alg, usage, KindPEM, priv, nil)
}

func importECPrivate(alg Algorithm, usage KeyUsage, armored []byte, format string) (*Key, error) {
	priv, err := jwt.ParseECPrivateKeyFromPEM(armored)
	if err != nil {
		if errors.Is(err, jwt.ErrNotECPrivateKey) {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an EC key; this %s key is not EC", alg, format)
		}
		return nil, withCause(errorf(ErrCodeInvalidPEM, "could not parse %s EC private key", format), err)
	}
	if err := checkCurve(alg, &priv.PublicKey); err != nil {
		return nil, err
	}
	return newAsymmetricKey(alg, usage, KindPEM, priv, nil)
}

func importPEMPublic(alg Algorithm, label string, armored []byte) (*Key, error) {
	var (
		pub crypto.PublicKey
		err error
	)
	switch alg.Family() {
	case FamilyECDSA:
		if label == pemRSAPublicKey {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an EC key; this PEM holds an RSA public key", alg)
		}
		var ecPub *ecdsa.PublicKey
		ecPub, err = jwt.ParseECPublicKeyFromPEM(armored)
		if errors.Is(err, jwt.ErrNotECPublicKey) {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an EC key; this public key is not EC", alg)
		}
		if err == nil {
			if err := checkCurve(alg, ecPub); err != nil {
				return nil, err
			}
			pub = ecPub
		}
	default:
		var rsaPub *rsa.PublicKey
		rsaPub, err = jwt.ParseRSAPublicKeyFromPEM(armored)
		if errors.Is(err, jwt.ErrNotRSAPublicKey) {
			return nil, errorf(ErrCodeKeyAlgorithmMismatch, "%s needs an RSA key; this public key is not RSA", alg)
		}
		if err == nil {
			pub = rsaPub
		}
	}
	if err != nil {
		return nil, withCause(errorf(ErrCodeInvalidPEM, "could not parse %s", strings.ToLower(label)), err)
	}
	return newAsymmetricKey(alg, UsageVerify, KindPEM, nil, pub)
}
