package main

import (
	"dvhc-api/internal/division"

	"github.com/spf13/cobra"
)

func newProvinceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "province", Short: "Province records"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List provinces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			ps, err := st.ListProvinces(cmd.Context())
			if err != nil {
				return err
			}
			return renderProvinces(cmd.OutOrStdout(), opts.format, ps)
		},
	})
	return cmd
}

func newCommuneCmd(opts *rootOptions) *cobra.Command {
	var province string
	cmd := &cobra.Command{Use: "commune", Short: "Commune records"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List communes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			var cs []division.Commune
			if province != "" {
				cs, err = st.ListCommunesByProvince(cmd.Context(), province)
			} else {
				cs, err = st.ListCommunes(cmd.Context())
			}
			if err != nil {
				return err
			}
			return renderCommunes(cmd.OutOrStdout(), opts.format, cs)
		},
	}
	list.Flags().StringVar(&province, "province", "", "Only communes of this province code")
	cmd.AddCommand(list)
	return cmd
}
