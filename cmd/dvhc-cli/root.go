package main

import (
	"context"

	"dvhc-api/internal/config"
	"dvhc-api/internal/logger"
	"dvhc-api/internal/migrate"
	"dvhc-api/internal/store"
	"dvhc-api/internal/utils"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFiles []string
	format   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "dvhc-cli",
		Short:        "Vietnamese administrative division maintenance tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "Env files to load (default .env, data/env/.env)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "table", "Output format: table|json")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newTreeCmd(opts))
	cmd.AddCommand(newUnitCmd(opts))
	cmd.AddCommand(newProvinceCmd(opts))
	cmd.AddCommand(newCommuneCmd(opts))
	return cmd
}

// openStore：加载配置、连接数据库并确保表结构；返回的 cleanup 负责关闭连接
func openStore(ctx context.Context, opts *rootOptions) (*config.Config, *store.Store, func(), error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return cfg, store.AttachDB(db), func() { _ = db.Close() }, nil
}
