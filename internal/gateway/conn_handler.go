package gateway

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/mav-gateway/internal/config"
	"github.com/taoyao-code/mav-gateway/internal/metrics"
	"github.com/taoyao-code/mav-gateway/internal/protocol/mavlink"
	"github.com/taoyao-code/mav-gateway/internal/session"
	"github.com/taoyao-code/mav-gateway/internal/tcpserver"
)

// versionLabel 指标用版本标签
func versionLabel(v mavlink.Version) string {
	if v == mavlink.V2 {
		return "v2"
	}
	return "v1"
}

// NewConnHandler 构建 TCP 连接处理器：在连接字节流上跑帧解码循环，
// 对每帧做方言校验与签名校验，更新会话与指标。
// keyring 为 nil 表示不校验签名（requireSigned 也随之失效）。
func NewConnHandler(
	gw cfgpkg.GatewayConfig,
	dialect mavlink.Dialect,
	keyring *Keyring,
	sess *session.Manager,
	appm *metrics.AppMetrics,
	log *zap.Logger,
) tcpserver.Handler {
	return func(cc *tcpserver.ConnContext) {
		clog := log.With(
			zap.Uint64("conn_id", cc.ID()),
			zap.String("remote", cc.RemoteAddr().String()),
		)
		clog.Info("link connected")

		dec := mavlink.NewDecoder(cc)
		var lastDiscarded uint64

		for {
			frame, err := dec.Next()

			// 同步阶段丢弃的噪声字节增量上报
			if d := dec.Discarded(); d > lastDiscarded {
				appm.ResyncBytesTotal.Add(float64(d - lastDiscarded))
				lastDiscarded = d
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					clog.Info("link closed by peer")
				} else if errors.Is(err, io.ErrUnexpectedEOF) {
					clog.Warn("link closed mid-frame")
				} else {
					clog.Warn("link read failed", zap.Error(err))
				}
				return
			}

			handleFrame(frame, gw, dialect, keyring, sess, appm, clog)
		}
	}
}

// handleFrame 单帧处理：方言校验 -> 签名策略 -> 会话更新
func handleFrame(
	frame *mavlink.Frame,
	gw cfgpkg.GatewayConfig,
	dialect mavlink.Dialect,
	keyring *Keyring,
	sess *session.Manager,
	appm *metrics.AppMetrics,
	clog *zap.Logger,
) {
	appm.FrameTotal.WithLabelValues(versionLabel(frame.Version())).Inc()

	if err := dialect.Validate(frame); err != nil {
		reason := "checksum"
		switch {
		case errors.Is(err, mavlink.ErrUnknownMessage):
			reason = "unknown_message"
		case errors.Is(err, mavlink.ErrVersionUnsupported):
			reason = "version"
		}
		appm.FrameDropTotal.WithLabelValues(reason).Inc()
		clog.Debug("frame dropped",
			zap.String("reason", reason),
			zap.Uint32("message_id", frame.MessageID()),
			zap.Uint8("sequence", frame.Sequence()),
			zap.Error(err))
		return
	}

	signed := frame.Signature() != nil
	if keyring != nil {
		if signed {
			if err := keyring.Verify(frame); err != nil {
				result := "bad"
				if errors.Is(err, mavlink.ErrStaleTimestamp) {
					result = "stale"
				} else if errors.Is(err, ErrUnknownLink) {
					result = "unknown_link"
				}
				appm.SignatureTotal.WithLabelValues(result).Inc()
				appm.FrameDropTotal.WithLabelValues("signature").Inc()
				clog.Warn("signature rejected",
					zap.Uint8("link_id", frame.Signature().LinkID),
					zap.String("result", result))
				return
			}
			appm.SignatureTotal.WithLabelValues("ok").Inc()
		} else if gw.RequireSigned {
			appm.FrameDropTotal.WithLabelValues("unsigned").Inc()
			clog.Warn("unsigned frame rejected",
				zap.Uint8("system_id", frame.SystemID()),
				zap.Uint32("message_id", frame.MessageID()))
			return
		}
	}

	key := session.LinkKey{SystemID: frame.SystemID(), ComponentID: frame.ComponentID()}
	lost := sess.OnFrame(key, session.FrameMeta{
		Version:  uint8(frame.Version()),
		Sequence: frame.Sequence(),
		Signed:   signed,
		At:       time.Now(),
	})
	if lost > 0 {
		appm.SequenceLoss.Add(float64(lost))
	}
	appm.OnlineGauge.Set(float64(sess.OnlineCount(time.Now())))
}
