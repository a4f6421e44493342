package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

func newEncodeCmd(a *app) *cobra.Command {
	var (
		header  string
		payload string
		decode  bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Sign a header and payload into a token",
		Long: `Encode signs JSON header and payload with the configured key. Without
--header and --payload a sample token is produced. Prefix a value with @ to
read it from a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alg, err := a.algorithm(jwtdebug.AlgHS256)
			if err != nil {
				return err
			}
			sample := jwtdebug.DefaultSample(alg, time.Now())

			headerText := sample.HeaderJSON()
			if header != "" {
				if headerText, err = readJSONFlag(header); err != nil {
					return err
				}
			}
			payloadText := sample.PayloadJSON()
			if payload != "" {
				if payloadText, err = readJSONFlag(payload); err != nil {
					return err
				}
			}

			if declared := headerAlgorithm(headerText); declared != "" && a.v.GetString("alg") == "" {
				if alg, err = jwtdebug.ParseAlgorithm(declared); err != nil {
					return err
				}
			}

			var key *jwtdebug.Key
			if alg != jwtdebug.AlgNone {
				if key, err = a.importKey(alg, jwtdebug.UsageSign); err != nil {
					return err
				}
			}
			token, err := jwtdebug.SignJSON(headerText, payloadText, key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			if !decode {
				return nil
			}
			tok, err := jwtdebug.ParseToken(token)
			if err != nil {
				return err
			}
			p, err := a.presenter()
			if err != nil {
				return err
			}
			printToken(out, tok)
			printSummary(out, p.SummarizeToken(tok))
			return nil
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "header JSON (or @file)")
	cmd.Flags().StringVar(&payload, "payload", "", "payload JSON (or @file)")
	cmd.Flags().BoolVar(&decode, "decode", false, "also print the decoded result")
	return cmd
}

// headerAlgorithm returns the "alg" of a header JSON text, or "" when the text
// has none or cannot be read.
func headerAlgorithm(text string) string {
	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal([]byte(text), &hdr); err != nil {
		return ""
	}
	return hdr.Alg
}
