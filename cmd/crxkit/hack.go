package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/loader"
)

func newHackCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hack",
		Short: "Manage the import escape-hatch tables",
		Long: `Escape-hatch tables redirect a bare import specifier to a file inside an
installed package. Tables are YAML or JSON files under HACKS_DIR.`,
	}
	cmd.AddCommand(newHackListCommand(c), newHackAddCommand(c))
	return cmd
}

func newHackListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered escape hatches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			dir, err := cfg.HacksDir()
			if err != nil {
				return err
			}
			if dir == "" {
				return errors.New("escape-hatch tables are disabled (HACKS_DIR is empty)")
			}

			entries, loadErrors, err := loader.NewHackLoader(dir).LoadAll(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "SPECIFIER\tPACKAGE\tPATH")
			for _, e := range entries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Specifier, e.Package, e.Path)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, le := range loadErrors {
				_, _ = fmt.Fprintf(c.stderr, "%s: %s\n", le.FilePath, le.Error)
			}
			if len(loadErrors) > 0 {
				return &ExitError{Code: 1, Err: fmt.Errorf("%d hack tables failed to load", len(loadErrors))}
			}
			return nil
		},
	}
}

func newHackAddCommand(c *cli) *cobra.Command {
	var entry domain.HackEntry
	cmd := &cobra.Command{
		Use:   "add <specifier>",
		Short: "Add an escape hatch to the local table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			dir, err := cfg.HacksDir()
			if err != nil {
				return err
			}
			if dir == "" {
				return errors.New("escape-hatch tables are disabled (HACKS_DIR is empty)")
			}

			entry.Specifier = args[0]
			if err := loader.NewWriter(dir).AddHack(entry); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "added %s -> %s/%s\n", entry.Specifier, entry.Package, entry.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&entry.Package, "package", "", "package that holds the target file")
	cmd.Flags().StringVar(&entry.Path, "path", "", "file path inside the package")
	cmd.Flags().StringVar(&entry.Description, "description", "", "why the escape hatch exists")
	return cmd
}
