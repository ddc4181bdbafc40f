package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	port    string // Startup port // 启动端口
	runMode string // Startup mode // 启动模式
}

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run service",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := NewServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("service start err", zap.Error(err))
				os.Exit(1)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-quit:
				s.logger.Info("Received shutdown signal, initiating graceful shutdown...")
			case err := <-s.Err():
				s.logger.Error("Service failed, shutting down", zap.Error(err))
			}

			if err := s.Shutdown(); err != nil {
				bootstrapLogger.Error("Shutdown completed with error", zap.Error(err))
				os.Exit(1)
			}
			bootstrapLogger.Info("Service has been shut down gracefully.")
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.port, "port", "p", "", "run port")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
}
