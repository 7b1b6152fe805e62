package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/teambot/oauth"
	"github.com/onnwee/teambot/youtubeapi"
)

// newYouTubeTokenCommand creates the "youtube-token" subcommand that mints YT_REFRESH_TOKEN.
func newYouTubeTokenCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "youtube-token",
		Short: "Run the Google consent flow and print a refresh token for the YouTube fallback",
		Long: `Starts a temporary listener on YT_REDIRECT_URI, prints the Google consent URL
and waits for the redirect. The authorization code is exchanged for a
refresh token, printed as YT_REFRESH_TOKEN=... for your .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ConfigFromContext(cmd.Context())
			logger := LoggerFromContext(cmd.Context())
			if cfg.YTClientID == "" || cfg.YTClientSecret == "" {
				return errors.New("YT_CLIENT_ID and YT_CLIENT_SECRET are required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			oc := youtubeapi.OAuthConfig(cfg)
			out := cmd.OutOrStdout()
			code, err := oauth.RunLocal(ctx, cfg.YTRedirectURI,
				func(state string) string { return youtubeapi.AuthCodeURL(oc, state) },
				func(consentURL string) {
					fmt.Fprintf(out, "Open this URL in your browser and approve access:\n\n  %s\n\n", consentURL)
				},
				logger,
			)
			if err != nil {
				return err
			}
			refresh, err := youtubeapi.ExchangeRefreshToken(ctx, oc, code)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "YT_REFRESH_TOKEN=%s\n", refresh)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the browser redirect")
	return cmd
}
