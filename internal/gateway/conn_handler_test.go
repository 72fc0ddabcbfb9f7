package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/mav-gateway/internal/config"
	"github.com/taoyao-code/mav-gateway/internal/metrics"
	"github.com/taoyao-code/mav-gateway/internal/protocol/mavlink"
	"github.com/taoyao-code/mav-gateway/internal/session"
)

var testDialect = mavlink.Dialect{
	0: {CRCExtra: 50, MinVersion: mavlink.V1, PayloadSizeV1: 9, PayloadSizeV2: 9},
}

func testFrame(t *testing.T, seq uint8) *mavlink.Frame {
	t.Helper()
	frame, err := mavlink.NewFrameBuilder(mavlink.V2).
		SystemID(1).ComponentID(1).Sequence(seq).
		Message(0, []byte{1, 2, 3}, 50).
		Build()
	require.NoError(t, err)
	return frame
}

func TestHandleFrame_ValidUpdatesSession(t *testing.T) {
	sess := session.New(time.Minute)
	appm := metrics.NewAppMetrics(metrics.NewRegistry())
	gw := cfgpkg.GatewayConfig{}

	handleFrame(testFrame(t, 0), gw, testDialect, nil, sess, appm, zap.NewNop())
	handleFrame(testFrame(t, 1), gw, testDialect, nil, sess, appm, zap.NewNop())

	snap := sess.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(2), snap[0].Frames)
	assert.Equal(t, uint64(0), snap[0].Lost)
}

func TestHandleFrame_InvalidDropped(t *testing.T) {
	sess := session.New(time.Minute)
	appm := metrics.NewAppMetrics(metrics.NewRegistry())
	gw := cfgpkg.GatewayConfig{}

	t.Run("未知消息", func(t *testing.T) {
		unknown, err := mavlink.NewFrameBuilder(mavlink.V2).SystemID(1).ComponentID(1).
			Message(999, []byte{1}, 0).Build()
		require.NoError(t, err)
		handleFrame(unknown, gw, testDialect, nil, sess, appm, zap.NewNop())
		assert.Empty(t, sess.Snapshot())
	})

	t.Run("校验和不匹配", func(t *testing.T) {
		bad, err := mavlink.NewFrameBuilder(mavlink.V2).SystemID(1).ComponentID(1).
			Message(0, []byte{1, 2, 3}, 51).Build() // 错误的 CRC_EXTRA
		require.NoError(t, err)
		handleFrame(bad, gw, testDialect, nil, sess, appm, zap.NewNop())
		assert.Empty(t, sess.Snapshot())
	})
}

func TestHandleFrame_SigningPolicy(t *testing.T) {
	key := mavlink.SecretKeyFromPassphrase("policy")
	keyring := &Keyring{verifiers: map[uint8]*mavlink.Verifier{1: mavlink.NewVerifier(key)}}

	newEnv := func() (*session.Manager, *metrics.AppMetrics) {
		return session.New(time.Minute), metrics.NewAppMetrics(metrics.NewRegistry())
	}

	t.Run("强制签名时未签名帧被丢弃", func(t *testing.T) {
		sess, appm := newEnv()
		gw := cfgpkg.GatewayConfig{RequireSigned: true}
		handleFrame(testFrame(t, 0), gw, testDialect, keyring, sess, appm, zap.NewNop())
		assert.Empty(t, sess.Snapshot())
	})

	t.Run("合法签名帧通过", func(t *testing.T) {
		sess, appm := newEnv()
		gw := cfgpkg.GatewayConfig{RequireSigned: true}
		signed, err := mavlink.NewFrameBuilder(mavlink.V2).SystemID(1).ComponentID(1).
			Message(0, []byte{1, 2, 3}, 50).
			Sign(1, 1000, key).Build()
		require.NoError(t, err)
		handleFrame(signed, gw, testDialect, keyring, sess, appm, zap.NewNop())
		snap := sess.Snapshot()
		require.Len(t, snap, 1)
		assert.True(t, snap[0].Signed)
	})

	t.Run("错误密钥签名被丢弃", func(t *testing.T) {
		sess, appm := newEnv()
		gw := cfgpkg.GatewayConfig{}
		forged, err := mavlink.NewFrameBuilder(mavlink.V2).SystemID(1).ComponentID(1).
			Message(0, []byte{1, 2, 3}, 50).
			Sign(1, 2000, mavlink.SecretKeyFromPassphrase("wrong")).Build()
		require.NoError(t, err)
		handleFrame(forged, gw, testDialect, keyring, sess, appm, zap.NewNop())
		assert.Empty(t, sess.Snapshot())
	})

	t.Run("无密钥环时签名帧直接放行", func(t *testing.T) {
		sess, appm := newEnv()
		gw := cfgpkg.GatewayConfig{}
		signed, err := mavlink.NewFrameBuilder(mavlink.V2).SystemID(1).ComponentID(1).
			Message(0, []byte{1, 2, 3}, 50).
			Sign(7, 3000, mavlink.SecretKeyFromPassphrase("other")).Build()
		require.NoError(t, err)
		handleFrame(signed, gw, testDialect, nil, sess, appm, zap.NewNop())
		assert.Len(t, sess.Snapshot(), 1)
	})
}
