package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crxkit/crxkit/internal/livereload"
)

func newTailCommand(c *cli) *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print live-update messages from a running dev session",
		Long: `Connects to the HMR socket (default) or the build-phase socket of a
running "crxkit dev" and prints every message as one JSON line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			port := cfg.HMR.Port
			switch socket {
			case "hmr":
			case "build":
				port++
			default:
				return fmt.Errorf("unknown socket %q, want hmr or build", socket)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return tail(ctx, livereload.SocketURL(cfg.HMR.Host, port, cfg.HMR.Secure), socket, c.stdout)
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "hmr", "socket to follow: hmr or build")
	return cmd
}

// tail prints messages until ctx is cancelled or the server closes the
// connection.
func tail(ctx context.Context, url, socket string, out io.Writer) error {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	emit := func(v any) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(v)
	}

	var (
		client *livereload.Client
		err    error
	)
	if socket == "build" {
		client, err = livereload.DialBuild(ctx, url, func(event string) {
			emit(livereload.BuildMessage{Type: event})
		})
	} else {
		client, err = livereload.DialHMR(ctx, url, livereload.HMRHandlers{
			OnUpdate: func(ctx context.Context, assets []livereload.Asset) error {
				emit(livereload.NewUpdateMessage(assets))
				return nil
			},
			OnError: func(diags []livereload.Diagnostic) {
				emit(livereload.NewErrorMessage(diags))
			},
		})
	}
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	select {
	case <-ctx.Done():
	case <-client.Done():
	}
	return nil
}
