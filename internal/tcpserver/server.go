package tcpserver

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/mav-gateway/internal/config"
)

// Handler 每连接处理函数。ConnContext 实现 io.Reader，
// 处理函数返回即视为连接结束。
type Handler func(*ConnContext)

// Server TCP 网关：监听、接受限流、每连接一个处理 goroutine
type Server struct {
	cfg        cfgpkg.TCPConfig
	log        *zap.Logger
	ln         net.Listener
	wg         sync.WaitGroup
	stopC      chan struct{}
	handler    Handler
	limiter    *ConnectionLimiter
	rateLim    *RateLimiter
	nextConnID uint64
	// 可选指标回调
	onAccept    func()
	onRecvBytes func(n int)
}

// New 创建 TCP 网关
func New(cfg cfgpkg.TCPConfig, log *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		stopC:   make(chan struct{}),
		limiter: NewConnectionLimiter(cfg.MaxConnections, 2*time.Second),
		rateLim: NewRateLimiter(cfg.AcceptRate, cfg.AcceptBurst),
	}
}

// SetHandler 设置每连接处理函数
func (s *Server) SetHandler(h Handler) { s.handler = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onRecvBytes func(int)) {
	s.onAccept, s.onRecvBytes = onAccept, onRecvBytes
}

// LimiterStats 返回连接限流统计
func (s *Server) LimiterStats() LimiterStats { return s.limiter.Stats() }

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("tcp listening", zap.String("addr", s.cfg.Addr))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}

		// 接受速率限流：超速直接拒绝，不排队
		if !s.rateLim.Allow() {
			s.log.Warn("accept rate exceeded", zap.String("remote", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}
		// 并发连接数限流
		if err := s.limiter.Acquire(context.Background()); err != nil {
			s.log.Warn("connection limit exceeded", zap.String("remote", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}
		if s.onAccept != nil {
			s.onAccept()
		}

		cc := newConnContext(s, conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.limiter.Release()
			defer cc.Close()
			if s.handler != nil {
				s.handler(cc)
			}
		}()
	}
}

// Shutdown 优雅关闭监听并等待连接退出
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
