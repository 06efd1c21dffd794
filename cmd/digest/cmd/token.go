package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/digestbot/internal/bootstrap"
	"github.com/yanqian/digestbot/internal/domain/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, recorded on jobs as http:<subject>")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default auth.tokenTtl)")
	_ = tokenCmd.MarkFlagRequired("subject")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		svc := auth.NewService(bootstrap.ProvideAuthConfig(rt.cfg), rt.logger)
		issued, err := svc.IssueToken(cmd.Context(), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(issued)
	},
}
