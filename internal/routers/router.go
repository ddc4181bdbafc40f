package routers

import (
	"github.com/haierkeys/edu-program-service/internal/app"
	"github.com/haierkeys/edu-program-service/internal/middleware"
	pkgapp "github.com/haierkeys/edu-program-service/pkg/app"
	"github.com/haierkeys/edu-program-service/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthRes health check payload // 健康检查数据
type HealthRes struct {
	pkgapp.VersionInfo
	Database        string  `json:"database"`
	PendingCascades []int64 `json:"pendingCascades"`
	ShuttingDown    bool    `json:"shuttingDown"`
}

// NewRouter 创建运维路由：健康检查与 Prometheus 指标
func NewRouter(appContainer *app.App) *gin.Engine {
	cfg := appContainer.Config()
	logger := appContainer.Logger().Named("http")

	r := gin.New()
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AccessLog(logger))
	if cfg.Server.RunMode == "debug" {
		r.Use(gin.Recovery())
	} else {
		r.Use(middleware.RecoveryWithLogger(logger))
	}

	r.GET("/health", func(c *gin.Context) {
		pkgapp.NewResponse(c).ToResponseData(code.Success, HealthRes{
			VersionInfo: pkgapp.VersionInfo{
				Name:      app.Name,
				Version:   app.Version,
				GitTag:    app.GitTag,
				BuildTime: app.BuildTime,
			},
			Database:        cfg.Database.Type,
			PendingCascades: appContainer.SummaryService.Pending(),
			ShuttingDown:    appContainer.IsShuttingDown(),
		})
	})

	if cfg.Metrics.Enabled {
		reg := appContainer.Registry()
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	if cfg.Server.RunMode == "debug" {
		registerPprof(r)
	}

	r.NoRoute(middleware.NoFound())
	return r
}
