package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/mav-gateway/internal/tcpserver"
)

// TCPChecker TCP 网关健康检查器：按连接限流器利用率分级
type TCPChecker struct {
	server *tcpserver.Server
}

// NewTCPChecker 创建TCP健康检查器
func NewTCPChecker(server *tcpserver.Server) *TCPChecker {
	return &TCPChecker{server: server}
}

// Name 返回检查器名称
func (c *TCPChecker) Name() string {
	return "tcp"
}

// Check 执行健康检查
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	stats := c.server.LimiterStats()
	if stats.MaxConnections == 0 {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no limiting enabled",
			Latency: time.Since(start),
		}
	}

	status := StatusHealthy
	message := "ok"
	if stats.Utilization > 0.8 {
		status = StatusDegraded
		message = "high connection usage"
	}
	if stats.Utilization > 0.95 {
		status = StatusUnhealthy
		message = "connection limit near exhausted"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"active_connections": stats.ActiveConnections,
			"max_connections":    stats.MaxConnections,
			"rejected_total":     stats.RejectedTotal,
			"utilization":        fmt.Sprintf("%.1f%%", stats.Utilization*100),
		},
		Latency: time.Since(start),
	}
}
