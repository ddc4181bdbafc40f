package task

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/app"
	"github.com/haierkeys/edu-program-service/internal/service"

	"go.uber.org/zap"
)

// RecountTask 全量重算机构统计，修正漂移的计数
type RecountTask struct {
	summary     service.SummaryService
	logger      *zap.Logger
	spec        string
	startup     bool
	concurrency int
}

// Name 返回任务名称
func (t *RecountTask) Name() string {
	return "SummaryRecount"
}

// Spec 返回 cron 表达式
func (t *RecountTask) Spec() string {
	return t.spec
}

// IsStartupRun 是否立即执行一次
func (t *RecountTask) IsStartupRun() bool {
	return t.startup
}

// Run 执行重算
func (t *RecountTask) Run(ctx context.Context) error {
	started := time.Now()
	changed, err := t.summary.RecomputeAll(ctx, t.concurrency)
	if err != nil {
		return err
	}
	t.logger.Info("task log",
		zap.String("task", t.Name()),
		zap.Int("changed", changed),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// NewRecountTask 创建重算任务，既无 cron 表达式也不在启动时执行时不启用
func NewRecountTask(summary service.SummaryService, logger *zap.Logger, spec string, startup bool, concurrency int) Task {
	if spec == "" && !startup {
		return nil
	}
	return &RecountTask{
		summary:     summary,
		logger:      logger,
		spec:        spec,
		startup:     startup,
		concurrency: concurrency,
	}
}

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		cfg := appContainer.Config().App
		return NewRecountTask(
			appContainer.SummaryService,
			appContainer.Logger().Named("task"),
			cfg.RecountSpec,
			cfg.RecountOnStartup,
			cfg.RecountConcurrency,
		), nil
	})
}
