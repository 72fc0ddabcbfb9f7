package tcpserver

import (
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// ConnContext 单个 TCP 连接的上下文。实现 io.Reader：
// 帧解码器直接在其上逐字节消费，读超时自动刷新 deadline。
type ConnContext struct {
	s      *Server
	c      net.Conn
	id     uint64
	writeC chan []byte
	closed int32
	doneC  chan struct{}
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	cc := &ConnContext{
		s:      s,
		c:      c,
		id:     atomic.AddUint64(&s.nextConnID, 1),
		writeC: make(chan []byte, 128),
		doneC:  make(chan struct{}),
	}
	go cc.writeLoop()
	return cc
}

// ID 返回连接ID（单进程唯一递增）
func (cc *ConnContext) ID() uint64 { return cc.id }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() net.Addr { return cc.c.RemoteAddr() }

// Read 实现 io.Reader。每次读取前刷新读超时；
// 超时按普通错误上抛，由调用方决定是否断开。
func (cc *ConnContext) Read(p []byte) (int, error) {
	if cc.s.cfg.ReadTimeout > 0 {
		_ = cc.c.SetReadDeadline(time.Now().Add(cc.s.cfg.ReadTimeout))
	}
	n, err := cc.c.Read(p)
	if n > 0 && cc.s.onRecvBytes != nil {
		cc.s.onRecvBytes(n)
	}
	return n, err
}

// Write 异步写入，受写队列与写超时影响
func (cc *ConnContext) Write(b []byte) error {
	if atomic.LoadInt32(&cc.closed) == 1 {
		return errors.New("connection closed")
	}
	// 复制一份，避免调用方复用底层切片
	dup := make([]byte, len(b))
	copy(dup, b)
	to := cc.s.cfg.WriteTimeout
	if to <= 0 {
		to = 5 * time.Second
	}
	select {
	case cc.writeC <- dup:
		return nil
	case <-time.After(to):
		return errors.New("write queue timeout")
	}
}

func (cc *ConnContext) writeLoop() {
	for msg := range cc.writeC {
		if cc.s.cfg.WriteTimeout > 0 {
			_ = cc.c.SetWriteDeadline(time.Now().Add(cc.s.cfg.WriteTimeout))
		}
		if _, err := cc.c.Write(msg); err != nil {
			break
		}
	}
}

// Close 关闭连接与写队列
func (cc *ConnContext) Close() error {
	if !atomic.CompareAndSwapInt32(&cc.closed, 0, 1) {
		return nil
	}
	close(cc.writeC)
	close(cc.doneC)
	return cc.c.Close()
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }
