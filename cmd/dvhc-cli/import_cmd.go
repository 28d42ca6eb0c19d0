package main

import (
	"time"

	"dvhc-api/internal/cache"
	"dvhc-api/internal/ingest"
	"dvhc-api/internal/utils"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "import <file|url>",
		Short: "Import a provinces/communes/units dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, cleanup, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if batch <= 0 {
				batch = cfg.Import.BatchSize
			}
			start := time.Now()
			res, err := ingest.Run(cmd.Context(), nil, st.DB(), args[0], batch)
			if err != nil {
				return err
			}
			// 服务端树缓存随导入失效
			if rc := utils.OpenRedis(cfg.Redis); rc != nil {
				cache.NewTree(rc, cfg.TreeCacheTTL).Invalidate(cmd.Context())
				_ = rc.Close()
			}
			return renderImport(cmd.OutOrStdout(), opts.format, res, time.Since(start))
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "Rows per transaction (default IMPORT_BATCH_SIZE)")
	return cmd
}
