package mavlink

import (
	"testing"
)

func TestChecksum16_KnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "空数据保持初值",
			data:     []byte{},
			expected: 0xFFFF,
		},
		{
			name:     "标准校验串123456789",
			data:     []byte("123456789"),
			expected: 0x6F91, // CRC-16/MCRF4XX check value
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Checksum16(tt.data)
			if result != tt.expected {
				t.Errorf("Checksum16() = 0x%04X, expected 0x%04X", result, tt.expected)
			}
		})
	}
}

func TestX25_IncrementalDigestInvariance(t *testing.T) {
	// 分段累加必须与一次性累加结果一致（任意切分点）
	data := []byte{124, 12, 22, 34, 2, 148, 82, 201, 72, 0, 18, 215, 37, 63}

	whole := Checksum16(data)
	for k := 0; k <= len(data); k++ {
		c := NewX25()
		c.Digest(data[:k])
		c.Digest(data[k:])
		if c.Sum() != whole {
			t.Errorf("split at %d: got 0x%04X, expected 0x%04X", k, c.Sum(), whole)
		}
	}
}

func TestX25_ChunkedEqualsConcatenated(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0xFE, 0xFD, 0x00}

	c := NewX25()
	c.Digest(a, b)

	concat := append(append([]byte{}, a...), b...)
	if c.Sum() != Checksum16(concat) {
		t.Errorf("chunked digest 0x%04X != concatenated digest 0x%04X", c.Sum(), Checksum16(concat))
	}
}

func TestX25_SumDoesNotConsumeState(t *testing.T) {
	c := NewX25()
	c.Digest([]byte{0xAA})
	first := c.Sum()
	if c.Sum() != first {
		t.Errorf("Sum() changed state: %04X -> %04X", first, c.Sum())
	}
	c.DigestByte(0xBB)
	if c.Sum() == first {
		t.Errorf("DigestByte did not advance state")
	}
}
