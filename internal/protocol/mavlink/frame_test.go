package mavlink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFrame_EndToEndV1 协议给定的端到端样例：
// system_id=10 component_id=255 sequence=1 message_id=0 载荷8个零字节 crc_extra=50
func TestFrame_EndToEndV1(t *testing.T) {
	frame, err := NewFrameBuilder(V1).
		SystemID(10).
		ComponentID(255).
		Sequence(1).
		Message(0, make([]byte, 8), 50).
		Build()
	require.NoError(t, err)

	encoded := frame.Encode()
	require.Len(t, encoded, HeaderSizeV1+8+ChecksumSize)
	assert.Equal(t, MagicV1, encoded[0])

	decoded, err := DecodeFrame(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, uint8(10), decoded.SystemID())
	assert.Equal(t, uint8(255), decoded.ComponentID())
	assert.Equal(t, uint8(1), decoded.Sequence())
	assert.Equal(t, uint32(0), decoded.MessageID())
	assert.Equal(t, uint8(8), decoded.PayloadLength())
	assert.Equal(t, frame.Checksum(), decoded.Checksum())

	// 正确的 CRC_EXTRA 通过，错误的 CRC_EXTRA 必须失败
	assert.NoError(t, decoded.ValidateChecksum(50))
	assert.ErrorIs(t, decoded.ValidateChecksum(51), ErrChecksumMismatch)
}

func TestFrame_RoundTripV2Truncation(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	frame, err := NewFrameBuilder(V2).
		SystemID(1).
		ComponentID(1).
		Sequence(7).
		Message(33, payload, 11).
		Build()
	require.NoError(t, err)

	// 线上只传截断后的4字节
	assert.Equal(t, uint8(4), frame.PayloadLength())
	encoded := frame.Encode()
	require.Len(t, encoded, HeaderSizeV2+4+ChecksumSize)

	decoded, err := DecodeFrame(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, decoded.Payload().Bytes())
	assert.NoError(t, decoded.ValidateChecksum(11))

	// 重编码必须复现截断后的原始字节
	assert.Equal(t, encoded, decoded.Encode())
}

func TestFrame_AllZeroPayloadV2(t *testing.T) {
	frame, err := NewFrameBuilder(V2).
		SystemID(1).ComponentID(1).
		Message(0, make([]byte, 8), 50).
		Build()
	require.NoError(t, err)

	assert.Equal(t, uint8(0), frame.PayloadLength())

	decoded, err := DecodeFrame(bytes.NewReader(frame.Encode()))
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload().Bytes())
	assert.NoError(t, decoded.ValidateChecksum(50))
}

func TestFrameBuilder_Validation(t *testing.T) {
	t.Run("缺少消息", func(t *testing.T) {
		_, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).Build()
		assert.ErrorIs(t, err, ErrMessageRequired)
	})

	t.Run("载荷超过255字节", func(t *testing.T) {
		_, err := NewFrameBuilder(V2).SystemID(1).ComponentID(1).
			Message(0, make([]byte, 256), 0).Build()
		assert.ErrorIs(t, err, ErrPayloadTooLong)
	})

	t.Run("V1不支持签名", func(t *testing.T) {
		_, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
			Message(0, nil, 0).
			Sign(1, 100, SecretKey{}).Build()
		assert.ErrorIs(t, err, ErrSignatureUnsupported)
	})

	t.Run("V1的message_id越界", func(t *testing.T) {
		_, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
			Message(300, nil, 0).Build()
		assert.ErrorIs(t, err, ErrMessageIDRange)
	})

	t.Run("广播ID不能发帧", func(t *testing.T) {
		_, err := NewFrameBuilder(V1).SystemID(0).ComponentID(1).
			Message(0, nil, 0).Build()
		assert.ErrorIs(t, err, ErrBroadcastSource)
	})
}

func TestDialect_Validate(t *testing.T) {
	dialect := Dialect{
		0:  {CRCExtra: 50, MinVersion: V1, PayloadSizeV1: 9, PayloadSizeV2: 9},
		77: {CRCExtra: 3, MinVersion: V2, PayloadSizeV2: 4},
	}

	frame, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
		Message(0, make([]byte, 9), 50).Build()
	require.NoError(t, err)
	assert.NoError(t, dialect.Validate(frame))

	t.Run("未知消息", func(t *testing.T) {
		unknown, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
			Message(200, nil, 0).Build()
		require.NoError(t, err)
		assert.ErrorIs(t, dialect.Validate(unknown), ErrUnknownMessage)
	})

	t.Run("V2专属消息出现在V1帧", func(t *testing.T) {
		v1frame, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
			Message(77, []byte{1, 2, 3, 4}, 3).Build()
		require.NoError(t, err)
		assert.ErrorIs(t, dialect.Validate(v1frame), ErrVersionUnsupported)
	})

	t.Run("校验和不匹配与未知消息区分", func(t *testing.T) {
		bad, err := NewFrameBuilder(V1).SystemID(1).ComponentID(1).
			Message(0, make([]byte, 9), 51).Build() // 错误的 CRC_EXTRA
		require.NoError(t, err)
		assert.ErrorIs(t, dialect.Validate(bad), ErrChecksumMismatch)
	})
}
