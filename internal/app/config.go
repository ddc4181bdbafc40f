// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/edu-program-service/internal/dao"
	"github.com/haierkeys/edu-program-service/internal/service"
	"github.com/haierkeys/edu-program-service/pkg/logger"
	"github.com/haierkeys/edu-program-service/pkg/util"
	"github.com/haierkeys/edu-program-service/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string         `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	App      AppSettings    `yaml:"app"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error dpanic panic fatal"`
	// File 日志文件路径，为空时输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式 debug / release
	RunMode string `yaml:"run-mode" default:"release" validate:"oneof=debug release test"`
	// HttpPort HTTP 监听地址，为空时不启动 HTTP 服务
	HttpPort string `yaml:"http-port" default:":9100"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60" validate:"gte=0"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60" validate:"gte=0"`
	// Lang 错误消息语言 en / zh_cn
	Lang string `yaml:"lang" default:"en" validate:"oneof=en zh_cn"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite / mysql / postgres
	Type string `yaml:"type" default:"sqlite" validate:"oneof=sqlite mysql postgres"`
	// Path SQLite 数据库文件路径
	Path     string `yaml:"path" default:"storage/database/edu.sqlite3"`
	UserName string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	// Name 数据库名
	Name string `yaml:"name"`
	// SSLMode postgres 连接的 sslmode
	SSLMode     string `yaml:"ssl-mode" default:"disable"`
	TablePrefix string `yaml:"table-prefix"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool   `yaml:"auto-migrate" default:"true"`
	Charset     string `yaml:"charset"`
	ParseTime   bool   `yaml:"parse-time"`
	// MaxIdleConns 最大闲置连接数，默认 10
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，默认 100
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时）
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
	// Replicas 只读副本，复制延迟内的读取走这里
	Replicas []ReplicaConfig `yaml:"replicas" validate:"dive"`
}

// ReplicaConfig 只读副本配置，未填写的字段沿用主库
type ReplicaConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
	Path string `yaml:"path"`
}

// AppSettings 应用设置
type AppSettings struct {
	// SystemActorName 无操作者的写入记录的名称
	SystemActorName string `yaml:"system-actor-name" default:"system"`
	// HistoryPageSize 修订列表默认分页大小
	HistoryPageSize int `yaml:"history-page-size" default:"20" validate:"gt=0,lte=500"`
	// RecountConcurrency 批量重算机构统计的并发数
	RecountConcurrency int `yaml:"recount-concurrency" default:"4" validate:"gt=0,lte=64"`
	// CascadeRetrySpec 级联失败重试的 cron 表达式
	CascadeRetrySpec string `yaml:"cascade-retry-spec" default:"*/5 * * * *"`
	// RecountSpec 全量重算的 cron 表达式，为空表示不定时执行
	RecountSpec string `yaml:"recount-spec"`
	// RecountOnStartup 启动时是否执行一次全量重算
	RecountOnStartup bool `yaml:"recount-on-startup"`
	// ShutdownTimeout 优雅关闭超时
	ShutdownTimeout string `yaml:"shutdown-timeout" default:"30s"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"256"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否暴露指标
	Enabled bool `yaml:"enabled" default:"true"`
	// Path 指标路径
	Path string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// CronParser 解析任务的 cron 表达式，支持 @every 等描述符
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	c, err := ParseConfig(file)
	if err != nil {
		return nil, realpath, err
	}
	c.File = realpath
	return c, realpath, nil
}

// ParseConfig 解析 YAML 配置内容并校验
func ParseConfig(data []byte) (*AppConfig, error) {
	c := new(AppConfig)

	// 设置默认值，YAML 中出现的字段覆盖默认值
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config file failed")
	}

	// 不再二次填充默认值，否则显式配置为 false 的开关会被改回 true

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	for name, spec := range map[string]string{
		"cascade-retry-spec": c.App.CascadeRetrySpec,
		"recount-spec":       c.App.RecountSpec,
	} {
		if spec == "" {
			continue
		}
		if _, err := CronParser.Parse(spec); err != nil {
			return errors.Wrapf(err, "invalid config: app.%s", name)
		}
	}
	for name, d := range map[string]string{
		"shutdown-timeout":      c.App.ShutdownTimeout,
		"write-queue-timeout":   c.App.WriteQueueTimeout,
		"write-queue-idle-time": c.App.WriteQueueIdleTime,
	} {
		if _, err := util.ParseDuration(d); err != nil {
			return errors.Wrapf(err, "invalid config: app.%s", name)
		}
	}
	return nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	if err := os.WriteFile(c.File, data, 0644); err != nil {
		return errors.Wrap(err, "write config file failed")
	}
	return nil
}

// GetLoggerConfig 获取日志配置
func (c *AppConfig) GetLoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		Production: c.Log.Production,
	}
}

// GetDatabaseConfig 转换为 DAO 使用的数据库配置
func (c *AppConfig) GetDatabaseConfig() *dao.DatabaseConfig {
	cfg := &dao.DatabaseConfig{
		Type:            c.Database.Type,
		Path:            c.Database.Path,
		UserName:        c.Database.UserName,
		Password:        c.Database.Password,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		Name:            c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		TablePrefix:     c.Database.TablePrefix,
		AutoMigrate:     c.Database.AutoMigrate,
		Charset:         c.Database.Charset,
		ParseTime:       c.Database.ParseTime,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		RunMode:         c.Server.RunMode,
	}
	for _, r := range c.Database.Replicas {
		cfg.Replicas = append(cfg.Replicas, dao.ReplicaConfig{Host: r.Host, Port: r.Port, Path: r.Path})
	}
	return cfg
}

// GetServiceConfig 获取服务层配置
func (c *AppConfig) GetServiceConfig() *service.ServiceConfig {
	cfg := service.DefaultServiceConfig()
	if c.App.SystemActorName != "" {
		cfg.Record.SystemActorName = c.App.SystemActorName
	}
	if c.App.HistoryPageSize > 0 {
		cfg.Record.HistoryPageSize = c.App.HistoryPageSize
	}
	if c.App.RecountConcurrency > 0 {
		cfg.Summary.RecountConcurrency = c.App.RecountConcurrency
	}
	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.Capacity = c.App.WriteQueueCapacity
	}
	if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil && timeout > 0 {
		cfg.WriteTimeout = timeout
	}
	if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil && idleTime > 0 {
		cfg.IdleTimeout = idleTime
	}
	return cfg
}

// GetShutdownTimeout 获取优雅关闭超时
func (c *AppConfig) GetShutdownTimeout() time.Duration {
	if d, err := util.ParseDuration(c.App.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultShutdownTimeout
}
