package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

// errVerificationFailed is returned after a FAIL banner has been printed.
var errVerificationFailed = errors.New("verification failed")

func newVerifyCmd(a *app) *cobra.Command {
	var (
		tokenFile string
		allow     []string
		skew      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a token's signature and expiry",
		Long: `Verify checks the token's signature with the configured key and then its exp
and nbf claims. Only the key's algorithm is accepted unless --allow widens it.
The exit status is 1 when verification fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readToken(cmd, args, tokenFile)
			if err != nil {
				return err
			}
			opts := []jwtdebug.VerifyOption{jwtdebug.WithAcceptableSkew(skew)}
			if len(allow) > 0 {
				algs := make([]jwtdebug.Algorithm, 0, len(allow))
				for _, name := range allow {
					alg, err := jwtdebug.ParseAlgorithm(name)
					if err != nil {
						return err
					}
					algs = append(algs, alg)
				}
				opts = append(opts, jwtdebug.WithAllowedAlgorithms(algs...))
			}

			res := a.verify(raw, opts)
			printResult(cmd.OutOrStdout(), res)
			if !res.Valid {
				a.log.Debug("verification failed", "code", string(res.Code), "expired", res.Expired)
				return errVerificationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "read the token from a file")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "algorithms accepted in addition to the key's own")
	cmd.Flags().DurationVar(&skew, "skew", 0, "tolerated clock skew for exp and nbf (at most 5m)")
	return cmd
}

// verify imports the configured key for --alg, or for the token's own
// algorithm when --alg is unset, and verifies raw with it.
func (a *app) verify(raw string, opts []jwtdebug.VerifyOption) jwtdebug.Result {
	tok, err := jwtdebug.ParseToken(raw)
	if err != nil {
		return jwtdebug.Verify(raw, nil, opts...)
	}
	declared, _ := tok.Algorithm()
	fallback, err := jwtdebug.ParseAlgorithm(declared)
	if err != nil || fallback == jwtdebug.AlgNone {
		return jwtdebug.Verify(raw, nil, opts...)
	}
	alg, err := a.algorithm(fallback)
	if err != nil {
		return failure(tok, err)
	}
	key, err := a.importKey(alg, jwtdebug.UsageVerify)
	if err != nil {
		return failure(tok, err)
	}
	return jwtdebug.Verify(raw, key, opts...)
}

func failure(tok *jwtdebug.Token, err error) jwtdebug.Result {
	return jwtdebug.Result{
		Code:   jwtdebug.CodeOf(err),
		Reason: err.Error(),
		Token:  tok,
		Err:    err,
	}
}
