package health

import (
	"context"
	"time"

	"github.com/taoyao-code/mav-gateway/internal/session"
)

// SessionChecker 链路会话检查器：上报在线链路数量。
// 无链路不算故障（网关可以先于飞控启动），始终 Healthy。
type SessionChecker struct {
	sess *session.Manager
}

// NewSessionChecker 创建会话检查器
func NewSessionChecker(sess *session.Manager) *SessionChecker {
	return &SessionChecker{sess: sess}
}

// Name 返回检查器名称
func (c *SessionChecker) Name() string {
	return "session"
}

// Check 执行健康检查
func (c *SessionChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	now := time.Now()
	return CheckResult{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"online_links": c.sess.OnlineCount(now),
			"total_links":  len(c.sess.Snapshot()),
		},
		Latency: time.Since(start),
	}
}
