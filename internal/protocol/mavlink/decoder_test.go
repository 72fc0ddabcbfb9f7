package mavlink

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestFrame(t *testing.T, version Version, seq uint8) []byte {
	t.Helper()
	frame, err := NewFrameBuilder(version).
		SystemID(10).ComponentID(255).Sequence(seq).
		Message(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 50).
		Build()
	require.NoError(t, err)
	return frame.Encode()
}

func TestDecoder_Resynchronization(t *testing.T) {
	// 前导噪声 [0x00 0x12] 被丢弃，帧完整解出
	valid := encodeTestFrame(t, V1, 1)
	stream := append([]byte{0x00, 0x12}, valid...)

	d := NewDecoder(bytes.NewReader(stream))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(10), frame.SystemID())
	assert.Equal(t, uint8(1), frame.Sequence())
	assert.Equal(t, valid, frame.Encode())
	assert.Equal(t, uint64(2), d.Discarded())

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	var stream []byte
	for seq := uint8(0); seq < 3; seq++ {
		stream = append(stream, encodeTestFrame(t, V2, seq)...)
	}

	d := NewDecoder(bytes.NewReader(stream))
	for seq := uint8(0); seq < 3; seq++ {
		frame, err := d.Next()
		require.NoError(t, err)
		assert.Equal(t, seq, frame.Sequence())
		assert.Equal(t, V2, frame.Version())
	}
	_, err := d.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, uint64(0), d.Discarded())
}

func TestDecoder_MagicInsideNoise(t *testing.T) {
	// 噪声中出现 0xFE 会被当作帧头起点，产出一个校验和必然不过的伪帧；
	// 流位置随之越过伪帧体，真帧在下一次 Next 解出。
	noise := []byte{0xFE, 0x00, 0x00, 0x00, 0x00, 0x00, 0x99, 0x99}
	valid := encodeTestFrame(t, V1, 5)
	stream := append(noise, valid...)

	d := NewDecoder(bytes.NewReader(stream))

	bogus, err := d.Next()
	require.NoError(t, err)
	assert.Error(t, bogus.ValidateChecksum(50))

	frame, err := d.Next()
	require.NoError(t, err)
	require.NoError(t, frame.ValidateChecksum(50))
	assert.Equal(t, uint8(5), frame.Sequence())
}

func TestDecoder_MixedVersions(t *testing.T) {
	stream := append(encodeTestFrame(t, V1, 0), encodeTestFrame(t, V2, 1)...)

	d := NewDecoder(bytes.NewReader(stream))
	first, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, V1, first.Version())

	second, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, V2, second.Version())
}

func TestDecoder_TruncatedStream(t *testing.T) {
	valid := encodeTestFrame(t, V2, 0)

	t.Run("帧头中断", func(t *testing.T) {
		d := NewDecoder(bytes.NewReader(valid[:4]))
		_, err := d.Next()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("帧体中断", func(t *testing.T) {
		d := NewDecoder(bytes.NewReader(valid[:len(valid)-3]))
		_, err := d.Next()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("空流", func(t *testing.T) {
		d := NewDecoder(bytes.NewReader(nil))
		_, err := d.Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestDecoder_SignedFrameBodyIncludesSignature(t *testing.T) {
	key := SecretKeyFromPassphrase("decoder")
	frame, err := NewFrameBuilder(V2).
		SystemID(1).ComponentID(1).
		Message(0, []byte{1, 2, 3}, 50).
		Sign(1, 777, key).
		Build()
	require.NoError(t, err)
	encoded := frame.Encode()

	decoded, err := DecodeFrame(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.NotNil(t, decoded.Signature())
	assert.Equal(t, uint64(777), decoded.Signature().Timestamp)

	// signed 标志置位但签名段被截走：属于帧中断，不是"无签名"
	_, err = DecodeFrame(bytes.NewReader(encoded[:len(encoded)-SignatureSize]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// 按起始标志出现顺序产出帧，且每帧都是独立持有的副本
func TestDecoder_OrderingAndOwnership(t *testing.T) {
	a := encodeTestFrame(t, V1, 1)
	b := encodeTestFrame(t, V1, 2)
	d := NewDecoder(bytes.NewReader(append(append([]byte{}, a...), b...)))

	fa, err := d.Next()
	require.NoError(t, err)
	fb, err := d.Next()
	require.NoError(t, err)

	assert.Equal(t, uint8(1), fa.Sequence())
	assert.Equal(t, uint8(2), fb.Sequence())

	// 修改后一帧的载荷缓冲不影响前一帧
	fb.Payload().Full()[0] = 0xEE
	assert.Equal(t, byte(1), fa.Payload().Full()[0])
}
