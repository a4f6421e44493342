package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

func newMintCmd(a *app) *cobra.Command {
	var (
		issuer   string
		subject  string
		audience string
		ttl      time.Duration
		claims   []string
		count    int
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed token with iat, exp and a fresh jti",
		Long: `Mint signs a new token with the configured private key or secret. The token
carries iss, sub and aud when given, iat and exp from --ttl, and a random jti.
Extra claims are given as --claim name=value; values that parse as JSON are
kept as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alg, err := a.algorithm(jwtdebug.AlgHS256)
			if err != nil {
				return err
			}
			key, err := a.importKey(alg, jwtdebug.UsageSign)
			if err != nil {
				return err
			}
			extra, err := parseClaims(claims)
			if err != nil {
				return err
			}

			provider, err := jwtdebug.NewProvider(jwtdebug.ProviderConfig{
				Key:     key,
				Issuer:  issuer,
				Subject: subject,
				TTL:     ttl,
				Claims:  extra,
			})
			if err != nil {
				return err
			}
			src, err := provider.TokenSource(cmd.Context(), audience)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for range max(count, 1) {
				tok, err := src.Token()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, tok.AccessToken)
				a.log.Info("minted token", "alg", string(alg), "expires", tok.Expiry.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "iss claim")
	cmd.Flags().StringVar(&subject, "subject", "", "sub claim")
	cmd.Flags().StringVar(&audience, "audience", "", "aud claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime (at least 1m)")
	cmd.Flags().StringArrayVar(&claims, "claim", nil, "extra claim as name=value (repeatable)")
	cmd.Flags().IntVar(&count, "count", 1, "number of times to ask the token source; a cached token is reused until it nears expiry")
	return cmd
}

func parseClaims(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid claim %q: want name=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			out[name] = parsed
			continue
		}
		out[name] = value
	}
	return out, nil
}
