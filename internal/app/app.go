// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/edu-program-service/internal/dao"
	"github.com/haierkeys/edu-program-service/internal/service"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/haierkeys/edu-program-service/pkg/writequeue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// SQLite 写串行化
	writeQueueMgr *writequeue.Manager
	registry      *prometheus.Registry

	// Repository 层
	Repos service.Repositories

	// Service 层
	RecordService     service.RecordService
	MembershipService service.MembershipService
	SummaryService    service.SummaryService
	RevisionService   service.RevisionService
	AuditLogService   service.AuditLogService
	Metrics           *service.Metrics

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		registry:   prometheus.NewRegistry(),
		shutdownCh: make(chan struct{}),
	}

	// 错误消息语言
	if err := code.SetGlobalDefaultLang(cfg.Server.Lang); err != nil {
		logger.Warn("unsupported message language", zap.String("lang", cfg.Server.Lang), zap.Error(err))
	}

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger.Named("writequeue"))

	// 初始化 DAO（使用依赖注入）
	a.Dao = dao.New(db, context.Background(),
		dao.WithConfig(cfg.GetDatabaseConfig()),
		dao.WithLogger(logger.Named("dao")),
		dao.WithWriteQueueManager(a.writeQueueMgr),
	)

	// 初始化 Repository 层
	a.Repos = service.Repositories{
		Institution: dao.NewInstitutionRepository(a.Dao),
		Course:      dao.NewCourseRepository(a.Dao),
		Revision:    dao.NewRevisionRepository(a.Dao),
		Membership:  dao.NewMembershipRepository(a.Dao),
		Student:     dao.NewStudentRepository(a.Dao),
		Article:     dao.NewCourseArticleRepository(a.Dao),
		AuditLog:    dao.NewAuditLogRepository(a.Dao),
	}

	// 运行时指标
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 初始化 Service 层
	svc := service.NewServices(a.Repos, service.NewMetrics(a.registry), logger, cfg.GetServiceConfig())
	a.RecordService = svc.Record
	a.MembershipService = svc.Membership
	a.SummaryService = svc.Summary
	a.RevisionService = svc.Revision
	a.AuditLogService = svc.AuditLog
	a.Metrics = svc.Metrics

	logger.Info("App container initialized",
		zap.String("database", cfg.Database.Type),
		zap.Int("replicas", len(cfg.Database.Replicas)))
	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry 获取 Prometheus 注册表
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// WriteQueueManager 获取写队列管理器
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：后台操作 -> Write Queue Manager -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	// 标记关闭
	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 等待进行中的后台操作（定时任务）完成，它们仍需写队列
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All background operations completed")
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 2. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	if pending := a.SummaryService.Pending(); len(pending) > 0 {
		a.logger.Warn("Summary cascades still pending at shutdown, run recount after restart",
			zap.Int64s("institutions", pending))
	}

	// 3. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh 返回关闭信号通道（用于监听关闭事件）
func (a *App) ShutdownCh() <-chan struct{} {
	return a.shutdownCh
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
// 返回一个函数，在操作完成时调用
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}
