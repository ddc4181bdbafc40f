// Package writequeue serializes writes per lane
// Package writequeue 按通道串行化写操作
// SQLite allows a single writer, every write to one database file goes through one lane
// SQLite 只允许单写入者，同一数据库文件的写操作走同一通道
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull the lane backlog is at capacity
	// ErrQueueFull 通道积压已满
	ErrQueueFull = errors.New("write queue is full")
	// ErrQueueClosed the manager has been shut down
	// ErrQueueClosed 管理器已关闭
	ErrQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout the write did not complete in time
	// ErrWriteTimeout 写操作超时
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// Capacity backlog per lane // 每个通道的积压容量
	Capacity int
	// WriteTimeout upper bound a caller waits for its write // 调用方等待写入的上限
	WriteTimeout time.Duration
	// IdleTimeout idle lanes are stopped after this long // 空闲通道的回收时间
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Capacity:     256,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  10 * time.Minute,
	}
}

type job struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// lane is one serialized writer
// lane 单个串行写入通道
type lane struct {
	key      string
	jobs     chan job
	stop     chan struct{}
	stopOnce sync.Once
	lastUsed atomic.Int64
	stopped  atomic.Bool
	wg       sync.WaitGroup
}

func (l *lane) halt() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		close(l.stop)
	})
}

// Manager owns the lanes
// Manager 管理全部写入通道
type Manager struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool

	done    chan struct{}
	janitor sync.WaitGroup
}

// New creates a manager, nil cfg uses DefaultConfig
// New 创建写队列管理器，cfg 为 nil 时使用默认配置
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.Capacity > 0 {
			c.Capacity = cfg.Capacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config: c,
		logger: logger,
		lanes:  make(map[string]*lane),
		done:   make(chan struct{}),
	}

	m.janitor.Add(1)
	go m.reapIdle()

	m.logger.Info("write queue manager started",
		zap.Int("capacity", c.Capacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))

	return m
}

// Execute runs fn on the lane of key and waits for its result
// Jobs on one lane run one at a time in FIFO order, fn must not call Execute on the same lane
// Execute 在 key 对应的通道执行 fn 并等待结果
// 同一通道按 FIFO 顺序逐个执行，fn 内不得再次调用同一通道的 Execute
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	l, err := m.laneFor(key)
	if err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case l.jobs <- j:
	default:
		return ErrQueueFull
	}

	timer := time.NewTimer(m.config.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

func (m *Manager) laneFor(key string) (*lane, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrQueueClosed
	}
	if l, ok := m.lanes[key]; ok && !l.stopped.Load() {
		l.lastUsed.Store(time.Now().UnixNano())
		return l, nil
	}

	l := &lane{
		key:  key,
		jobs: make(chan job, m.config.Capacity),
		stop: make(chan struct{}),
	}
	l.lastUsed.Store(time.Now().UnixNano())
	m.lanes[key] = l

	l.wg.Add(1)
	go m.run(l)

	m.logger.Debug("write lane created", zap.String("lane", key))
	return l, nil
}

func (m *Manager) run(l *lane) {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			m.drain(l)
			return
		case j := <-l.jobs:
			m.do(l, j)
		}
	}
}

func (m *Manager) do(l *lane, j job) {
	l.lastUsed.Store(time.Now().UnixNano())
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}
	j.result <- j.fn()
}

func (m *Manager) drain(l *lane) {
	for {
		select {
		case j := <-l.jobs:
			m.do(l, j)
		default:
			return
		}
	}
}

func (m *Manager) reapIdle() {
	defer m.janitor.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.reap(time.Now())
		}
	}
}

func (m *Manager) reap(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, l := range m.lanes {
		idle := now.Sub(time.Unix(0, l.lastUsed.Load()))
		if idle > m.config.IdleTimeout && len(l.jobs) == 0 {
			l.halt()
			delete(m.lanes, key)
			m.logger.Debug("idle write lane stopped", zap.String("lane", key), zap.Duration("idle", idle))
		}
	}
}

// Shutdown stops accepting writes and waits for queued ones to finish
// Shutdown 停止接收写操作并等待已排队的写操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	lanes := make([]*lane, 0, len(m.lanes))
	for _, l := range m.lanes {
		lanes = append(lanes, l)
	}
	m.mu.Unlock()

	close(m.done)

	finished := make(chan struct{})
	go func() {
		for _, l := range lanes {
			l.halt()
			l.wg.Wait()
		}
		m.janitor.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info("write queue manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// LaneCount number of live lanes
func (m *Manager) LaneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

// IsClosed reports whether Shutdown has been called
func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
