package main

import (
	"github.com/spf13/cobra"

	"github.com/bionicotaku/lingo-utils-jwtdebug"
)

func newDecodeCmd(a *app) *cobra.Command {
	var (
		tokenFile string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "decode [token]",
		Short: "Decode a token and summarize its claims",
		Long: `Decode prints the header and payload of a JWT without verifying it.
The token is read from the argument, from --token-file, or from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readToken(cmd, args, tokenFile)
			if err != nil {
				return err
			}
			tok, err := jwtdebug.ParseToken(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != outputText {
				return writeDocument(out, output, newDocument(tok))
			}

			p, err := a.presenter()
			if err != nil {
				return err
			}
			printToken(out, tok)
			printSummary(out, p.SummarizeToken(tok))
			a.log.Debug("decoded token", "segments", segmentCount(tok))
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "read the token from a file")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json, yaml)")
	return cmd
}

func segmentCount(tok *jwtdebug.Token) int {
	if tok.SignatureSegment == "" {
		return 2
	}
	return 3
}
