package routers

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultPrefix url prefix of pprof
	DefaultPrefix = "/debug/pprof"
)

// registerPprof mounts the runtime profiles, debug run mode only
// registerPprof 注册运行时性能分析路由，仅 debug 模式
func registerPprof(r *gin.Engine) {
	p := r.Group(DefaultPrefix)
	{
		p.GET("/", pprofHandler(pprof.Index))
		p.GET("/cmdline", pprofHandler(pprof.Cmdline))
		p.GET("/profile", pprofHandler(pprof.Profile))
		p.POST("/symbol", pprofHandler(pprof.Symbol))
		p.GET("/symbol", pprofHandler(pprof.Symbol))
		p.GET("/trace", pprofHandler(pprof.Trace))
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			p.GET("/"+name, pprofHandler(pprof.Handler(name).ServeHTTP))
		}
	}
}

func pprofHandler(h http.HandlerFunc) gin.HandlerFunc {
	handler := h
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
