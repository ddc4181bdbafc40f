package cmd

import (
	"os"

	"github.com/haierkeys/edu-program-service/internal/app"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bootstrapLogger logs to stderr until openApp has built the configured logger,
// and keeps serving the commands that shut the App down
// bootstrapLogger 在 openApp 构建配置日志器之前输出到 stderr，命令关闭 App 时也使用它
var bootstrapLogger = newBootstrapLogger(os.Getenv("EDU_LOG_LEVEL"), os.Getenv("DEBUG") != "")

// newBootstrapLogger 构建启动阶段日志器，level 无法解析时使用 info
func newBootstrapLogger(level string, debug bool) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zapcore.InfoLevel
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller()).
		Named("bootstrap").
		With(zap.String("version", app.Version))
}
