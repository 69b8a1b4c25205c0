// Command crxkit builds browser extensions and serves live updates while
// developing them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crxkit/crxkit/internal/config"
	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/session"
)

// Version is set via ldflags.
var Version = "dev"

// ExitError carries a non-zero exit code out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

//go:generate swag init -g main.go -d ./,../../internal/api,../../internal/surface,../../internal/watcher,../../internal/livereload -o ../../docs

// @title crxkit inspection API
// @version 1.0
// @description Local API of a running crxkit dev session: surface catalog, change classification, import resolution and live-update clients

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /
// @schemes http

// @tag.name Catalog
// @tag.description Watched paths and change classification

// @tag.name Resolution
// @tag.description Import specifier resolution

// @tag.name Build
// @tag.description Bundler entries

// @tag.name Live update
// @tag.description Build-phase and HMR socket clients

// @tag.name System
// @tag.description Health and metrics
func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// cli holds the state shared by every command.
type cli struct {
	overrides config.Overrides
	stdout    io.Writer
	stderr    io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "crxkit",
		Short: "Browser extension bundler with live reload",
		Long: `crxkit bundles a browser extension from a conventional source layout.
Surfaces such as the popup, options page, background worker and content
scripts are discovered from well-known paths, rebuilt on change and pushed
to the running extension over websockets.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.overrides.Target, "target", "", "browser target (overrides BROWSER_TARGET)")
	flags.StringVar(&c.overrides.Env, "env", "", "runtime environment (overrides NODE_ENV)")
	flags.StringVar(&c.overrides.Project, "project", "", "project directory (overrides PROJECT_DIR)")

	root.AddCommand(
		newDevCommand(c),
		newBuildCommand(c),
		newPathsCommand(c),
		newTailCommand(c),
		newHealthCommand(c),
		newHackCommand(c),
	)
	return root
}

// loadConfig reads the environment, applies flag overrides and configures
// the global logger.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(c.overrides); err != nil {
		return nil, err
	}
	setupLogger(cfg.Logging.Level, cfg.Logging.Format, c.stderr)
	return cfg, nil
}

// sessionOptions maps the configuration onto a session.
func sessionOptions(cfg *config.Config) (session.Options, error) {
	paths, err := cfg.CommonPaths()
	if err != nil {
		return session.Options{}, err
	}
	buildDir, err := cfg.BuildDir()
	if err != nil {
		return session.Options{}, err
	}
	hacksDir, err := cfg.HacksDir()
	if err != nil {
		return session.Options{}, err
	}

	return session.Options{
		Paths:           paths,
		Build:           cfg.BuildOptions(),
		BuildDir:        buildDir,
		HacksDir:        hacksDir,
		AliasPrefix:     cfg.Resolver.AliasPrefix,
		CacheSize:       cfg.Resolver.CacheSize,
		PublicEnvPrefix: cfg.Target.PublicEnvPrefix,
		HMRHost:         cfg.HMR.Host,
		HMRPort:         cfg.HMR.Port,
		PingInterval:    cfg.HMR.PingInterval,
		WatchDebounce:   cfg.Watch.Debounce,
		WatchIgnore:     cfg.Watch.Ignore,
	}, nil
}

func setupLogger(level, format string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

func logStartupConfig(cfg *config.Config) {
	log.Info().
		Str("project_dir", cfg.Project.Dir).
		Str("build_dir", cfg.Project.BuildDir).
		Str("browser_target", cfg.Target.Browser).
		Str("node_env", cfg.Target.NodeEnv).
		Strs("ui_extensions", cfg.Target.UIExtensions).
		Str("hmr_host", cfg.HMR.Host).
		Int("hmr_port", cfg.HMR.Port).
		Bool("api_enabled", cfg.Server.Enabled).
		Int("api_port", cfg.Server.Port).
		Dur("watch_debounce", cfg.Watch.Debounce).
		Str("logging_level", cfg.Logging.Level).
		Msg("Configuration loaded successfully")
}

// configExit maps fatal configuration errors to exit code 2.
func configExit(err error) error {
	if domain.IsConfigError(err) {
		return &ExitError{Code: 2, Err: err}
	}
	return err
}
