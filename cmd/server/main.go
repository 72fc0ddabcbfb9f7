package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/mav-gateway/internal/config"
	"github.com/taoyao-code/mav-gateway/internal/dialect"
	"github.com/taoyao-code/mav-gateway/internal/gateway"
	"github.com/taoyao-code/mav-gateway/internal/health"
	"github.com/taoyao-code/mav-gateway/internal/httpserver"
	"github.com/taoyao-code/mav-gateway/internal/logging"
	"github.com/taoyao-code/mav-gateway/internal/metrics"
	"github.com/taoyao-code/mav-gateway/internal/session"
	"github.com/taoyao-code/mav-gateway/internal/tcpserver"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 configs/example.yaml）")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(reg)
	}

	// 4) 方言常量表
	dia, err := dialect.Load(cfg.Gateway.Dialect)
	if err != nil {
		log.Fatal("load dialect", zap.String("path", cfg.Gateway.Dialect), zap.Error(err))
	}
	log.Info("dialect loaded", zap.String("path", cfg.Gateway.Dialect), zap.Int("messages", len(dia)))

	// 5) 签名密钥环（可选）
	var keyring *gateway.Keyring
	if cfg.Gateway.Keyring != "" {
		keyring, err = gateway.LoadKeyring(cfg.Gateway.Keyring)
		if err != nil {
			log.Fatal("load keyring", zap.String("path", cfg.Gateway.Keyring), zap.Error(err))
		}
		log.Info("keyring loaded",
			zap.Int("links", keyring.Links()),
			zap.Bool("require_signed", cfg.Gateway.RequireSigned))
	}

	// 6) 会话管理
	sess := session.New(cfg.Gateway.SessionTimeout)

	// 7) TCP 网关
	tcpSrv := tcpserver.New(cfg.TCP, log)
	tcpSrv.SetMetricsCallbacks(
		func() { appm.TCPAccepted.Inc() },
		func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
	)
	tcpSrv.SetHandler(gateway.NewConnHandler(cfg.Gateway, dia, keyring, sess, appm, log))

	// 8) 健康检查与 HTTP 服务
	agg := health.NewAggregator(
		health.NewTCPChecker(tcpSrv),
		health.NewSessionChecker(sess),
	)
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, agg, sess)

	// 并行启动
	go func() {
		if err := httpSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
		}
	}()
	if err := tcpSrv.Start(); err != nil {
		log.Fatal("tcp server start error", zap.Error(err))
	}

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	_ = tcpSrv.Shutdown(ctx)
}
