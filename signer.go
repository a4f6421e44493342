package jwtdebug

import (
	"encoding/json"

	"github.com/lestrrat-go/jwx/v2/jws"
)

const defaultType = "JWT"

// Sign serializes header and payload and signs them with key. The header is
// copied; "typ" defaults to JWT and "alg" defaults to the key's algorithm.
// For "none" the key may be nil and the token ends with an empty signature.
func Sign(header, payload map[string]any, key *Key) (string, error) {
	if payload == nil {
		return "", errorf(ErrCodeSigningError, "payload must be a JSON object")
	}
	if len(payload) == 0 {
		return "", errorf(ErrCodeSigningError, "payload is empty; add at least one claim")
	}

	hdr := make(map[string]any, len(header)+2)
	for k, v := range header {
		hdr[k] = v
	}
	if _, ok := hdr["typ"]; !ok {
		hdr["typ"] = defaultType
	}

	alg, err := signingAlgorithm(hdr, key)
	if err != nil {
		return "", err
	}
	hdr["alg"] = string(alg)

	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return "", withCause(errorf(ErrCodeSigningError, "header cannot be encoded as JSON"), err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", withCause(errorf(ErrCodeSigningError, "payload cannot be encoded as JSON"), err)
	}

	input := Base64URLEncode(headerJSON) + "." + Base64URLEncode(payloadJSON)
	if alg == AlgNone {
		return input + ".", nil
	}

	signature, err := signInput(alg, []byte(input), key)
	if err != nil {
		return "", err
	}
	return input + "." + Base64URLEncode(signature), nil
}

// SignJSON parses header and payload JSON text and signs them. An empty
// header is treated as {}.
func SignJSON(headerText, payloadText string, key *Key) (string, error) {
	header := map[string]any{}
	if headerText != "" {
		parsed, err := decodeObject("header", headerText)
		if err != nil {
			return "", withCause(errorf(ErrCodeSigningError, "header is not a JSON object"), err)
		}
		header = parsed
	}
	payload, err := decodeObject("payload", payloadText)
	if err != nil {
		return "", withCause(errorf(ErrCodeSigningError, "payload is not a JSON object"), err)
	}
	return Sign(header, payload, key)
}

// signingAlgorithm reconciles the header "alg" with the key's algorithm.
func signingAlgorithm(hdr map[string]any, key *Key) (Algorithm, error) {
	var declared Algorithm
	if v, ok := hdr["alg"]; ok {
		s, isString := v.(string)
		if !isString {
			return "", withCause(errorf(ErrCodeSigningError, "header \"alg\" must be a string"),
				errorf(ErrCodeMissingAlgorithm, "\"alg\" is %s", jsonKind(v)))
		}
		alg, err := ParseAlgorithm(s)
		if err != nil {
			return "", withCause(errorf(ErrCodeSigningError, "header \"alg\" is not usable"), err)
		}
		declared = alg
	}

	if key == nil {
		if declared == AlgNone {
			return AlgNone, nil
		}
		if declared == "" {
			return "", withCause(errorf(ErrCodeSigningError, "no key provided and header has no \"alg\""),
				errorf(ErrCodeMissingAlgorithm, "set \"alg\" or supply a key"))
		}
		return "", withCause(errorf(ErrCodeSigningError, "no key provided; %s needs %s", declared, expectedMaterial(declared.Family(), UsageSign)),
			errorf(ErrCodeMissingKey, "%s needs a key", declared))
	}

	if declared != "" && declared != key.Algorithm() {
		return "", withCause(errorf(ErrCodeSigningError, "header declares %s but the key was imported for %s", declared, key.Algorithm()),
			errorf(ErrCodeKeyAlgorithmMismatch, "key is bound to %s", key.Algorithm()))
	}
	if !key.CanSign() {
		return "", withCause(errorf(ErrCodeSigningError, "%s signing needs a private key, not a public key", key.Algorithm()),
			errorf(ErrCodeKeyAlgorithmMismatch, "key was imported for %s", key.Usage()))
	}
	return key.Algorithm(), nil
}

func signInput(alg Algorithm, input []byte, key *Key) ([]byte, error) {
	signer, err := jws.NewSigner(alg.jwa())
	if err != nil {
		return nil, withCause(errorf(ErrCodeSigningError, "algorithm %s cannot sign", alg), err)
	}
	signature, err := signer.Sign(input, key.signingKey())
	if err != nil {
		return nil, withCause(errorf(ErrCodeSigningError, "%s signing failed", alg), err)
	}
	return signature, nil
}
