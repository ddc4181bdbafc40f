package task

import (
	"context"

	"github.com/haierkeys/edu-program-service/internal/app"
	"github.com/haierkeys/edu-program-service/internal/service"

	"go.uber.org/zap"
)

// CascadeRetryTask 重试失败的机构统计级联
type CascadeRetryTask struct {
	summary service.SummaryService
	logger  *zap.Logger
	spec    string
}

// Name 返回任务名称
func (t *CascadeRetryTask) Name() string {
	return "CascadeRetry"
}

// Spec 返回 cron 表达式
func (t *CascadeRetryTask) Spec() string {
	return t.spec
}

// IsStartupRun 是否立即执行一次
func (t *CascadeRetryTask) IsStartupRun() bool {
	return false
}

// Run 执行重试
func (t *CascadeRetryTask) Run(ctx context.Context) error {
	pending := len(t.summary.Pending())
	if pending == 0 {
		return nil
	}

	recovered, err := t.summary.RetryPending(ctx)
	t.logger.Info("task log",
		zap.String("task", t.Name()),
		zap.Int("pending", pending),
		zap.Int("recovered", recovered),
		zap.Error(err))
	return err
}

// NewCascadeRetryTask 创建级联重试任务，spec 为空时不启用
func NewCascadeRetryTask(summary service.SummaryService, logger *zap.Logger, spec string) Task {
	if spec == "" {
		return nil
	}
	return &CascadeRetryTask{summary: summary, logger: logger, spec: spec}
}

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return NewCascadeRetryTask(
			appContainer.SummaryService,
			appContainer.Logger().Named("task"),
			appContainer.Config().App.CascadeRetrySpec,
		), nil
	})
}
