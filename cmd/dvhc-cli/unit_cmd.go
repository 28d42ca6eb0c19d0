package main

import (
	"fmt"
	"strings"

	"dvhc-api/internal/cache"
	"dvhc-api/internal/config"
	"dvhc-api/internal/division"
	"dvhc-api/internal/utils"

	"github.com/spf13/cobra"
)

func newUnitCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Maintain generic units",
	}
	cmd.AddCommand(newUnitListCmd(opts), newUnitGetCmd(opts), newUnitSetCmd(opts), newUnitDelCmd(opts))
	return cmd
}

func newUnitListCmd(opts *rootOptions) *cobra.Command {
	var level, parent string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List units in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			var units []division.Unit
			if parent != "" {
				units, err = st.ListChildUnits(cmd.Context(), parent)
			} else {
				units, err = st.ListUnits(cmd.Context())
			}
			if err != nil {
				return err
			}
			return renderUnits(cmd.OutOrStdout(), opts.format, filterLevel(units, level))
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Only units of this level")
	cmd.Flags().StringVar(&parent, "parent", "", "Only direct children of this code")
	return cmd
}

func newUnitGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show one unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			u, err := st.GetUnit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderUnits(cmd.OutOrStdout(), opts.format, []division.Unit{*u})
		},
	}
}

func newUnitSetCmd(opts *rootOptions) *cobra.Command {
	var (
		u      division.Unit
		level  string
		parent string
		attrs  []string
	)
	cmd := &cobra.Command{
		Use:   "set <code>",
		Short: "Create or update a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.Code = strings.TrimSpace(args[0])
			u.Level = division.Level(level)
			if cmd.Flags().Changed("parent") {
				u.ParentCode = division.StrPtr(parent)
			}
			kv, err := parseAttrs(attrs)
			if err != nil {
				return err
			}
			u.Attrs = kv
			cfg, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := st.UpsertUnit(cmd.Context(), u); err != nil {
				return err
			}
			invalidateTree(cmd, cfg)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "unit %s saved\n", u.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Parent code (empty for a top-level unit)")
	cmd.Flags().StringVar(&level, "level", string(division.LevelCommune), "Level label")
	cmd.Flags().StringVar(&u.Name, "name", "", "Short name")
	cmd.Flags().StringVar(&u.EnglishName, "english-name", "", "English name")
	cmd.Flags().StringVar(&u.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&u.Decree, "decree", "", "Establishing resolution")
	cmd.Flags().StringSliceVar(&attrs, "attr", nil, "Extra attribute key=value (repeatable)")
	return cmd
}

func newUnitDelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del <code>",
		Short: "Delete a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := st.DeleteUnit(cmd.Context(), args[0]); err != nil {
				return err
			}
			invalidateTree(cmd, cfg)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "unit %s deleted\n", args[0])
			return nil
		},
	}
}

func invalidateTree(cmd *cobra.Command, cfg *config.Config) {
	rc := utils.OpenRedis(cfg.Redis)
	if rc == nil {
		return
	}
	defer rc.Close()
	cache.NewTree(rc, cfg.TreeCacheTTL).Invalidate(cmd.Context())
}

func filterLevel(units []division.Unit, level string) []division.Unit {
	if level == "" {
		return units
	}
	out := make([]division.Unit, 0, len(units))
	for _, u := range units {
		if string(u.Level) == level {
			out = append(out, u)
		}
	}
	return out
}

// parseAttrs：解析 key=value 列表
func parseAttrs(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --attr %q, want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}
