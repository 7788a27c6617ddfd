package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/planfill-cli/internal/remote"
)

var fetchDest string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download plan exports from the configured FTP drop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Remote.Host == "" {
			return eris.New("remote host is not configured (PLANFILL_REMOTE_HOST)")
		}

		client := remote.New(remote.Options{
			Host:     cfg.Remote.Host,
			User:     cfg.Remote.User,
			Password: cfg.Remote.Password,
			Dir:      cfg.Remote.Dir,
		})

		files, err := client.FetchAll(ctx, fetchDest)
		if err != nil {
			return err
		}

		zap.L().Info("fetch complete",
			zap.String("dest", fetchDest),
			zap.Int("files", len(files)),
		)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDest, "dest", ".", "local directory for downloaded exports")
	rootCmd.AddCommand(fetchCmd)
}
