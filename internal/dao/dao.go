// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/util"
	"github.com/haierkeys/edu-program-service/pkg/writequeue"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type sqlite, mysql or postgres // 数据库类型
	Type string
	// Path SQLite 数据库文件路径
	Path     string
	UserName string
	Password string
	Host     string
	Port     int
	Name     string
	// SSLMode postgres only
	SSLMode     string
	TablePrefix string
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool
	Charset     string
	ParseTime   bool
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int
	// MaxOpenConns 最大打开连接数
	MaxOpenConns int
	// ConnMaxLifetime e.g. 30m, 1h
	ConnMaxLifetime string
	// ConnMaxIdleTime e.g. 10m
	ConnMaxIdleTime string
	// Replicas read replicas, routed through dbresolver // 只读副本
	Replicas []ReplicaConfig
	RunMode  string
}

// ReplicaConfig overrides the location fields of the primary for one replica
// ReplicaConfig 只读副本的连接位置（其余沿用主库配置）
type ReplicaConfig struct {
	Host string
	Port int
	Path string
}

// Dao 数据访问对象
type Dao struct {
	db         *gorm.DB
	ctx        context.Context
	config     *DatabaseConfig
	logger     *zap.Logger
	writeQueue *writequeue.Manager

	migrateOnce sync.Map // map[string]*sync.Once
}

// Option Dao 配置项
type Option func(*Dao)

// WithConfig 设置数据库配置
func WithConfig(cfg *DatabaseConfig) Option {
	return func(d *Dao) { d.config = cfg }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) { d.logger = l }
}

// WithWriteQueueManager 设置写队列管理器（SQLite 写串行化）
func WithWriteQueueManager(m *writequeue.Manager) Option {
	return func(d *Dao) { d.writeQueue = m }
}

// New 创建 Dao
func New(db *gorm.DB, ctx context.Context, opts ...Option) *Dao {
	d := &Dao{db: db, ctx: ctx}
	for _, opt := range opts {
		opt(d)
	}
	if d.config == nil {
		d.config = &DatabaseConfig{Type: "sqlite", AutoMigrate: true}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// DB returns the underlying gorm handle
func (d *Dao) DB() *gorm.DB {
	return d.db
}

// Logger 获取日志器
func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// ensureTable migrates the table behind key once per Dao when auto migrate is on
// ensureTable 按需迁移 key 对应的数据表（每个 Dao 只执行一次）
func (d *Dao) ensureTable(key string) {
	if !d.config.AutoMigrate {
		return
	}
	v, _ := d.migrateOnce.LoadOrStore(key, &sync.Once{})
	v.(*sync.Once).Do(func() {
		if err := model.AutoMigrate(d.db, key); err != nil {
			d.logger.Error("auto migrate failed", zap.String("table", key), zap.Error(err))
		}
	})
}

// Reader returns a session for reading the table behind key from the requested connection
// ReadAuthoritative pins the query to the primary
// Reader 返回读取 key 对应数据表的会话，ReadAuthoritative 强制走主库
func (d *Dao) Reader(ctx context.Context, key string, target domain.ReadTarget) *gorm.DB {
	d.ensureTable(key)
	db := d.db.WithContext(ctx)
	if target == domain.ReadAuthoritative {
		db = db.Clauses(dbresolver.Write)
	}
	return db
}

// ExecuteWrite runs fn against the primary
// SQLite writes are serialized through the write queue, fn must not call ExecuteWrite again
// ExecuteWrite 在主库执行写操作，SQLite 写操作经写队列串行化，fn 内不得嵌套调用 ExecuteWrite
func (d *Dao) ExecuteWrite(ctx context.Context, key string, fn func(db *gorm.DB) error) error {
	d.ensureTable(key)
	db := d.db.WithContext(ctx).Clauses(dbresolver.Write)
	if d.writeQueue == nil || d.config.Type != "sqlite" {
		return fn(db)
	}
	return d.writeQueue.Execute(ctx, d.writeLane(), func() error {
		return fn(db)
	})
}

func (d *Dao) writeLane() string {
	return "sqlite:" + d.config.Path
}

// Migrate runs every table migration now
// Migrate 立即迁移全部数据表
func (d *Dao) Migrate() error {
	return model.AutoMigrateAll(d.db)
}

// NewDBEngineWithConfig opens the database and registers read replicas
// NewDBEngineWithConfig 打开数据库并注册只读副本
func NewDBEngineWithConfig(c *DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	dialector, err := useDialector(c, ReplicaConfig{})
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if c.RunMode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database failed")
	}

	if len(c.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(c.Replicas))
		for _, r := range c.Replicas {
			rd, err := useDialector(c, r)
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, rd)
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, errors.Wrap(err, "register read replicas failed")
		}
		lg.Info("read replicas registered", zap.Int("count", len(replicas)))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB failed")
	}

	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(parseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(parseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	lg.Info("database connected", zap.String("type", c.Type))
	return db, nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := util.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func useDialector(c *DatabaseConfig, r ReplicaConfig) (gorm.Dialector, error) {
	host, port, path := c.Host, c.Port, c.Path
	if r.Host != "" {
		host = r.Host
	}
	if r.Port != 0 {
		port = r.Port
	}
	if r.Path != "" {
		path = r.Path
	}

	switch c.Type {
	case "mysql":
		if port != 0 {
			host = fmt.Sprintf("%s:%d", host, port)
		}
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName, c.Password, host, c.Name, charset, c.ParseTime,
		)), nil
	case "postgres":
		if port == 0 {
			port = 5432
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			host, c.UserName, c.Password, c.Name, port, sslMode,
		)), nil
	case "sqlite", "":
		if path == "" {
			return nil, errors.New("sqlite path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "create database dir failed")
		}
		return sqlite.Open(path + "?_pragma=busy_timeout(5000)"), nil
	}
	return nil, errors.Errorf("unsupported database type %q", c.Type)
}
