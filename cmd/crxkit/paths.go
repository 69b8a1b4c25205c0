package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crxkit/crxkit/internal/config"
	"github.com/crxkit/crxkit/internal/surface"
)

func newPathsCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the surface catalog",
		Long: `Prints every path crxkit watches with the reason it is watched, and
the directories whose whole contents are watched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			cat, err := buildCatalog(cfg)
			if err != nil {
				return configExit(err)
			}
			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cat.Snapshot())
			}
			return printCatalog(c.stdout, cat)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func buildCatalog(cfg *config.Config) (*surface.Catalog, error) {
	paths, err := cfg.CommonPaths()
	if err != nil {
		return nil, err
	}
	return surface.Build(paths, cfg.BuildOptions())
}

func printCatalog(out io.Writer, cat *surface.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintf(tw, "target\t%s\n", cat.BrowserTarget())
	_, _ = fmt.Fprintf(tw, "env\t%s\n\n", cat.RuntimeEnv())

	files := cat.WatchPaths()
	keys := make([]string, 0, len(files))
	for p := range files {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	for _, p := range keys {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", files[p], p)
	}
	for _, d := range cat.Directories() {
		_, _ = fmt.Fprintf(tw, "%s\t%s/\n", d.Reason, d.Path)
	}
	return tw.Flush()
}
