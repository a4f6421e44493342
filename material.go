package jwtdebug

// KeyMaterial is the user-supplied key input. It is implemented only by
// TextSecret, PEM and JWK.
type KeyMaterial interface {
	Kind() KeyKind
	isKeyMaterial()
}

// KeyKind names the encoding a key was supplied in.
type KeyKind string

const (
	KindTextSecret KeyKind = "text"
	KindPEM        KeyKind = "pem"
	KindJWK        KeyKind = "jwk"
)

// TextSecret is an HMAC secret whose UTF-8 bytes are the key.
type TextSecret string

// PEM is a PEM-armored key (PKCS#1, PKCS#8, SEC1, PKIX or a certificate).
type PEM string

// JWK is a JSON Web Key in its JSON text form.
type JWK string

func (TextSecret) Kind() KeyKind { return KindTextSecret }
func (PEM) Kind() KeyKind        { return KindPEM }
func (JWK) Kind() KeyKind        { return KindJWK }

func (TextSecret) isKeyMaterial() {}
func (PEM) isKeyMaterial()        {}
func (JWK) isKeyMaterial()        {}

// ParseKeyKind maps user-facing names ("text", "secret", "pem", "jwk") to a KeyKind.
func ParseKeyKind(s string) (KeyKind, bool) {
	switch s {
	case "text", "secret", "":
		return KindTextSecret, true
	case "pem":
		return KindPEM, true
	case "jwk":
		return KindJWK, true
	default:
		return "", false
	}
}

// NewKeyMaterial wraps raw input text as the variant named by kind.
func NewKeyMaterial(kind KeyKind, input string) KeyMaterial {
	switch kind {
	case KindPEM:
		return PEM(input)
	case KindJWK:
		return JWK(input)
	default:
		return TextSecret(input)
	}
}

// KeyUsage selects whether a key is imported for signing or verification.
type KeyUsage int

const (
	UsageVerify KeyUsage = iota
	UsageSign
)

func (u KeyUsage) String() string {
	if u == UsageSign {
		return "sign"
	}
	return "verify"
}
