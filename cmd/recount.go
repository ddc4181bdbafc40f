package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	var concurrency int

	var recountCommand = &cobra.Command{
		Use:   "recount [-n concurrency]",
		Short: "Recompute the summary counters of every institution. // 重新计算全部机构的统计字段。",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(rootEnv.config)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Shutdown(context.Background()); err != nil {
					bootstrapLogger.Warn("shutdown error", zap.Error(err))
				}
			}()

			started := time.Now()
			changed, err := app.SummaryService.RecomputeAll(cmd.Context(), concurrency)
			if err != nil {
				return err
			}
			fmt.Printf("%d institution(s) updated in %s\n", changed, time.Since(started).Round(time.Millisecond))
			return nil
		},
	}

	rootCmd.AddCommand(recountCommand)
	recountCommand.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "institutions recomputed in parallel, 0 uses app.recount-concurrency")
}
