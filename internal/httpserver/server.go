package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/mav-gateway/internal/config"
	"github.com/taoyao-code/mav-gateway/internal/health"
	"github.com/taoyao-code/mav-gateway/internal/session"
)

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server，注册健康检查、指标与链路查询路由。
// agg 为 nil 时 /readyz 退化为恒定就绪。
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, agg *health.Aggregator, sess *session.Manager) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if agg == nil || agg.Ready(c.Request.Context()) {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1")

	// 健康报告
	if agg != nil {
		api.GET("/health", func(c *gin.Context) {
			report := agg.Report(c.Request.Context())
			code := http.StatusOK
			if report.Status == health.StatusUnhealthy {
				code = http.StatusServiceUnavailable
			}
			c.JSON(code, report)
		})
	}

	// 链路查询
	if sess != nil {
		api.GET("/links", func(c *gin.Context) {
			links := sess.Snapshot()
			now := time.Now()
			online := 0
			for _, l := range links {
				if sess.IsOnline(session.LinkKey{SystemID: l.SystemID, ComponentID: l.ComponentID}, now) {
					online++
				}
			}
			c.JSON(http.StatusOK, gin.H{
				"total":  len(links),
				"online": online,
				"links":  links,
			})
		})
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
