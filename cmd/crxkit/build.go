package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/crxkit/crxkit/internal/bundler"
	"github.com/crxkit/crxkit/internal/config"
	"github.com/crxkit/crxkit/internal/session"
)

func newBuildCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the extension once",
		Long: `Builds every discovered entry into build/<target>-mv3-<env>. Without
--env the build runs in production mode. Exits non-zero when the bundler
reports errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.overrides.Env == "" {
				c.overrides.Env = "production"
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			return configExit(runBuild(cmd.Context(), cfg, c.stdout))
		},
	}
}

func runBuild(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(context.Background()) }()

	if err := sess.Start(ctx); err != nil {
		return err
	}

	result := sess.LastBuild()
	printBuild(out, sess.OutDir(), result)
	if result.Failed() {
		return &ExitError{Code: 1, Err: fmt.Errorf("build failed with %d errors", len(result.Diagnostics))}
	}
	return nil
}

func printBuild(out io.Writer, outDir string, result bundler.Result) {
	for _, d := range result.Diagnostics {
		_, _ = fmt.Fprintln(out, d.Render())
	}
	for _, a := range result.Assets {
		_, _ = fmt.Fprintf(out, "  %-10s %s\n", a.Type, a.ID)
	}
	_, _ = fmt.Fprintf(out, "%d assets, %d warnings in %s -> %s\n",
		len(result.Assets), result.Warnings, result.Duration.Round(time.Millisecond), outDir)
}
