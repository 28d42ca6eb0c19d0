package main

import (
	"dvhc-api/internal/division"

	"github.com/spf13/cobra"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the administrative forest as JSON (diagnostics on stderr)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if root == "" {
				root = cfg.RootLevel
			}
			units, err := st.ListUnits(cmd.Context())
			if err != nil {
				return err
			}
			forest, rep, err := division.Builder{RootLevel: division.Level(root)}.Build(units)
			if err != nil {
				return err
			}
			renderReport(cmd.ErrOrStderr(), rep)
			if opts.format == "outline" {
				renderOutline(cmd.OutOrStdout(), forest)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), forest)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Root level (default TREE_ROOT_LEVEL)")
	return cmd
}
