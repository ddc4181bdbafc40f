package cmd

import (
	"fmt"
	"os"

	"github.com/haierkeys/edu-program-service/pkg/fileurl"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootFlags struct {
	dir    string // Working directory // 工作目录
	config string // Specified configuration file path // 指定要使用的配置文件路径
}

var configDefault string
var rootEnv = new(rootFlags)
var rootCmd = &cobra.Command{
	Use:   "edu-program-service",
	Short: "Education Program Service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if len(rootEnv.dir) > 0 {
			if err := os.Chdir(rootEnv.dir); err != nil {
				return fmt.Errorf("failed to change the current working directory: %w", err)
			}
			bootstrapLogger.Info("working directory changed", zap.String("dir", rootEnv.dir))
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpTemplate()
		cmd.Help()
	},
}

func Execute(c string) {
	configDefault = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVarP(&rootEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&rootEnv.config, "config", "c", "", "config file")
}

// resolveConfig finds the config file, writing the embedded default when none exists
// resolveConfig 查找配置文件，不存在时写入内置的默认配置
func resolveConfig(path string) (string, error) {
	if len(path) > 0 {
		return path, nil
	}
	if found, ok := fileurl.FirstExisting("config/config-dev.yaml", "config.yaml", "config/config.yaml"); ok {
		return found, nil
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	path = "config/config.yaml"
	if err := fileurl.CreatePath(path, os.ModePerm); err != nil {
		return "", fmt.Errorf("config file auto create error: %w", err)
	}
	if err := os.WriteFile(path, []byte(configDefault), 0644); err != nil {
		return "", fmt.Errorf("config file auto create writing error: %w", err)
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", path))
	return path, nil
}
