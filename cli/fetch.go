package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onnwee/teambot/media"
	"github.com/onnwee/teambot/youtubeapi"
)

// newFetchCommand creates the "fetch" subcommand that downloads a video the way embed does.
func newFetchCommand() *cobra.Command {
	var (
		dir     string
		youtube bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a video with yt-dlp and report whether it fits the chat upload limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := ConfigFromContext(ctx)
			logger := LoggerFromContext(ctx)

			if _, err := media.ValidateURL(args[0]); err != nil {
				return err
			}
			if dir != "" {
				cfg.DownloadDir = dir
			}

			var up *youtubeapi.Uploader
			if youtube {
				var err error
				if up, err = youtubeapi.New(cfg); err != nil {
					return err
				}
			}

			v, err := newDownloader(cfg, logger).Download(ctx, args[0])
			if err != nil {
				return fmt.Errorf("download failed (%s): %w", media.ClassifyDownloadError(err), err)
			}

			out := cmd.OutOrStdout()
			fits := !v.TooLarge(cfg.MaxUploadBytes)
			fmt.Fprintf(out, "saved %s (%d bytes, fits upload limit: %t)\n", v.Path, v.Size, fits)

			if up != nil {
				link, err := up.Upload(ctx, v.Path, "Embedded video", "From: "+args[0])
				if err != nil {
					return err
				}
				logger.Info("uploaded to youtube", slog.String("link", link))
				fmt.Fprintln(out, link)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Download directory (overrides DOWNLOAD_DIR)")
	cmd.Flags().BoolVar(&youtube, "youtube", false, "Also upload the file with the YouTube fallback uploader")
	return cmd
}
