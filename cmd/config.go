package cmd

import (
	"fmt"

	"github.com/akedrou/textdiff"
	"github.com/spf13/cobra"

	ext_config "github.com/foldingtext/ftbundle/config"
	"github.com/foldingtext/ftbundle/internal/config"
)

func newConfigCommand(p *params) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show [target...]",
			Short: "Print the effective configuration as YAML",
			RunE: func(cmd *cobra.Command, args []string) error {
				root, _, err := p.load()
				if err != nil {
					return err
				}
				if len(args) > 0 {
					sub := &config.Root{Targets: map[string]*config.Bundle{}}
					for _, name := range args {
						b, ok := root.Targets[name]
						if !ok {
							return fmt.Errorf("unknown target %q", name)
						}
						sub.Targets[name] = b
					}
					root = sub
				}
				bs, err := root.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(bs)
				return err
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration files and patches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				root, _, err := p.load()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: %d targets\n", len(root.Targets))
				return nil
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Show how the effective configuration differs from the built-in one",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				root, base, err := p.load()
				if err != nil {
					return err
				}
				builtin, err := config.Default(base).Marshal()
				if err != nil {
					return err
				}
				effective, err := root.Marshal()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), textdiff.Unified("builtin", "effective", string(builtin), string(effective)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema of configuration files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := cmd.OutOrStdout().Write(ext_config.Schema())
				return err
			},
		},
	)
	return cmd
}
