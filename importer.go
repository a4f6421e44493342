package jwtdebug

// ImportKey turns user-supplied material into a key for alg. Structural and
// compatibility problems are reported as *Error before any parsing of key
// bytes is attempted. For "none" the material is ignored and may be nil.
func ImportKey(alg Algorithm, material KeyMaterial, usage KeyUsage) (*Key, error) {
	family := alg.Family()
	switch family {
	case FamilyUnknown:
		return nil, errorf(ErrCodeUnsupportedAlgorithm, "algorithm %q is not supported; use one of %s", alg, algorithmList())
	case FamilyNone:
		return &Key{alg: AlgNone, usage: usage}, nil
	}
	if material == nil {
		return nil, errorf(ErrCodeMissingKey, "%s needs a key; supply %s", alg, expectedMaterial(family, usage))
	}

	switch m := material.(type) {
	case TextSecret:
		return importTextSecret(alg, string(m), usage)
	case PEM:
		return importPEM(alg, string(m), usage)
	case JWK:
		return importJWK(alg, string(m), usage)
	default:
		return nil, errorf(ErrCodeInternal, "unhandled key material %T", material)
	}
}

func importTextSecret(alg Algorithm, secret string, usage KeyUsage) (*Key, error) {
	if family := alg.Family(); family != FamilyHMAC {
		return nil, errorf(ErrCodeKeyAlgorithmMismatch,
			"%s needs %s; a text secret only works with HS256, HS384 and HS512", alg, expectedMaterial(family, usage))
	}
	if secret == "" {
		return nil, errorf(ErrCodeMissingKey, "%s needs a secret; the secret is empty", alg)
	}
	return newSecretKey(alg, usage, KindTextSecret, TextToBytes(secret))
}

// expectedMaterial describes acceptable key input for a family in a sentence fragment.
func expectedMaterial(family Family, usage KeyUsage) string {
	switch family {
	case FamilyHMAC:
		return "a text secret or an oct JWK"
	case FamilyRSA, FamilyRSAPSS:
		if usage == UsageSign {
			return "an RSA private key (PEM or JWK)"
		}
		return "an RSA key (PEM or JWK)"
	case FamilyECDSA:
		if usage == UsageSign {
			return "an EC private key (PEM or JWK)"
		}
		return "an EC key (PEM or JWK)"
	default:
		return "no key"
	}
}
