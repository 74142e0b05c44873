package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/mediahub-backend/internal/platform/authjwt"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
)

// Tokens are normally issued by the account service; this is for local use
// and smoke tests against a shared JWT_SECRET_KEY.
func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Issue access tokens for testing"}

	var (
		uid      string
		username string
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an HS256 access token with JWT_SECRET_KEY",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := envutil.String("JWT_SECRET_KEY", "")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is required")
			}
			tok, err := authjwt.Sign([]byte(secret), authjwt.Identity{UserID: uid, Username: username}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVar(&uid, "uid", "", "User id placed in sub.uid")
	issue.Flags().StringVar(&username, "username", "", "Username placed in sub.username")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime; 0 issues a token without expiry")
	_ = issue.MarkFlagRequired("uid")

	cmd.AddCommand(issue)
	return cmd
}
