package task

import (
	"context"
	"sync"

	"github.com/haierkeys/edu-program-service/internal/app"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task 定义任务接口
type Task interface {
	Name() string                  // 任务名称
	Run(ctx context.Context) error // 执行任务
	Spec() string                  // cron 表达式，为空时只在启动时执行
	IsStartupRun() bool            // 是否立即执行一次
}

// Tracker 跟踪进行中的任务，关闭时等待其完成
type Tracker interface {
	TrackOperation() func()
}

// Scheduler 任务调度器
type Scheduler struct {
	logger  *zap.Logger
	cron    *cron.Cron
	tracker Tracker
	tasks   []Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建任务调度器
func NewScheduler(logger *zap.Logger, tracker Tracker) *Scheduler {
	cl := cronLogger{logger: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logger,
		tracker: tracker,
		cron: cron.New(
			cron.WithParser(app.CronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task Task) error {
	if spec := task.Spec(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(task, "loopRun") }); err != nil {
			return err
		}
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start 启动所有任务
func (s *Scheduler) Start() {
	if len(s.tasks) == 0 {
		s.logger.Info("no tasks to schedule")
		return
	}
	s.logger.Info("tasks starting", zap.Int("count", len(s.tasks)))

	for _, task := range s.tasks {
		if !task.IsStartupRun() {
			continue
		}
		s.wg.Add(1)
		go func(task Task) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("task startupRun panic",
						zap.String("name", task.Name()),
						zap.Any("panic", r),
						zap.Stack("stack"))
				}
			}()
			s.run(task, "startupRun")
		}(task)
	}
	s.cron.Start()
}

// Stop 停止调度并等待进行中的任务，ctx 控制等待时长
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("tasks stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(task Task, mode string) {
	if s.ctx.Err() != nil {
		return
	}
	if s.tracker != nil {
		defer s.tracker.TrackOperation()()
	}
	s.logger.Debug("task running", zap.String("name", task.Name()), zap.String("type", mode))
	if err := task.Run(s.ctx); err != nil {
		s.logger.Error("task running error",
			zap.String("name", task.Name()),
			zap.String("type", mode),
			zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
