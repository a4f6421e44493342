package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

// keyMaterial returns the key selected by --jwk, --jwk-file, --pem-file or
// --secret, in that order. It returns nil when none is set.
func (a *app) keyMaterial() (jwtdebug.KeyMaterial, error) {
	if inline := a.v.GetString("key.jwk"); inline != "" {
		return jwtdebug.JWK(inline), nil
	}
	if path := a.v.GetString("key.jwk_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read jwk file: %w", err)
		}
		return jwtdebug.JWK(data), nil
	}
	if path := a.v.GetString("key.pem_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pem file: %w", err)
		}
		return jwtdebug.PEM(data), nil
	}
	if secret := a.v.GetString("key.secret"); secret != "" {
		return jwtdebug.TextSecret(secret), nil
	}
	return nil, nil
}

// algorithm returns --alg, or fallback when it is unset.
func (a *app) algorithm(fallback jwtdebug.Algorithm) (jwtdebug.Algorithm, error) {
	name := a.v.GetString("alg")
	if name == "" {
		return fallback, nil
	}
	return jwtdebug.ParseAlgorithm(name)
}

// importKey imports the configured key material for alg and logs its warnings.
func (a *app) importKey(alg jwtdebug.Algorithm, usage jwtdebug.KeyUsage) (*jwtdebug.Key, error) {
	material, err := a.keyMaterial()
	if err != nil {
		return nil, err
	}
	key, err := jwtdebug.ImportKey(alg, material, usage)
	if err != nil {
		return nil, err
	}
	for _, w := range key.Warnings() {
		a.log.Warn(w, "alg", string(alg))
	}
	if key.Algorithm() != jwtdebug.AlgNone {
		if thumb, err := key.Thumbprint(); err == nil {
			a.log.Debug("imported key", "alg", string(alg), "kind", string(key.Kind()), "usage", usage.String(), "thumbprint", thumb)
		}
	}
	return key, nil
}

// readToken takes the token from the first argument, from file, or from stdin.
func readToken(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read token from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no token given; pass it as an argument, with --token-file or on stdin")
	}
	return string(data), nil
}

// readJSONFlag returns the flag value, or the contents of the file when the
// value starts with "@".
func readJSONFlag(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
