package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	internalApp "github.com/haierkeys/edu-program-service/internal/app"
	"github.com/haierkeys/edu-program-service/internal/dao"
	"github.com/haierkeys/edu-program-service/internal/routers"
	"github.com/haierkeys/edu-program-service/internal/task"
	"github.com/haierkeys/edu-program-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	logger     *zap.Logger            // Logger // 日志对象
	config     *internalApp.AppConfig // App configuration // 应用配置
	httpServer *http.Server
	tasks      *task.Manager
	app        *internalApp.App // App Container
	errCh      chan error
}

// openApp loads the config and builds logger, database and App Container
// openApp 加载配置并创建日志器、数据库连接与 App Container
func openApp(configPath string) (*internalApp.App, string, error) {
	path, err := resolveConfig(configPath)
	if err != nil {
		return nil, "", err
	}

	appConfig, configRealpath, err := internalApp.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.NewLogger(appConfig.GetLoggerConfig())
	if err != nil {
		return nil, "", fmt.Errorf("failed to init logger: %w", err)
	}

	// Initialize storage directory
	// 初始化存储目录
	if appConfig.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(appConfig.Database.Path), 0755); err != nil {
			return nil, "", fmt.Errorf("initStorage: %w", err)
		}
	}

	db, err := dao.NewDBEngineWithConfig(appConfig.GetDatabaseConfig(), lg)
	if err != nil {
		return nil, "", fmt.Errorf("initDatabase: %w", err)
	}

	app, err := internalApp.NewApp(appConfig, lg, db)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create app container: %w", err)
	}
	return app, configRealpath, nil
}

func NewServer(runEnv *runFlags) (*Server, error) {
	app, configRealpath, err := openApp(rootEnv.config)
	if err != nil {
		return nil, err
	}
	appConfig := app.Config()

	// Command line flags override the config file
	// 命令行参数覆盖配置文件
	if len(runEnv.runMode) > 0 {
		appConfig.Server.RunMode = runEnv.runMode
	}
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
	}
	gin.SetMode(appConfig.Server.RunMode)

	s := &Server{
		logger: app.Logger(),
		config: appConfig,
		app:    app,
		errCh:  make(chan error, 1),
	}

	if appConfig.Database.AutoMigrate {
		if err := app.Dao.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	// Start scheduler
	// 启动调度器
	s.tasks = task.NewManager(s.logger.Named("task"), app)
	if err := s.tasks.RegisterTasks(); err != nil {
		return nil, fmt.Errorf("failed to register tasks: %w", err)
	}
	s.tasks.Start()

	s.logger.Warn(fmt.Sprintf("%s v%s\nGit: %s\nBuildTime: %s\n", internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))
	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	// Start HTTP server
	// 启动 HTTP 服务器
	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", httpAddr))
		s.httpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewRouter(app),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("api service err", zap.Error(err))
				s.errCh <- err
			}
		}()
	}

	return s, nil
}

// Err reports a fatal server error
// Err 返回服务器致命错误通道
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown 按顺序关闭：HTTP -> 调度器 -> App Container
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GetShutdownTimeout())
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("api service shutdown error", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if s.tasks != nil {
		if err := s.tasks.Stop(ctx); err != nil {
			s.logger.Error("task scheduler shutdown error", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := s.app.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown app container", zap.Error(err))
		errs = append(errs, err)
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
