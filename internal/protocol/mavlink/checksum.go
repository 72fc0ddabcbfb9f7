package mavlink

// X25 CRC-16/MCRF4XX 增量累加器（MAVLink 校验和算法）
// 初值 0xFFFF，反射多项式 0x8408，无最终异或。
// 状态可续算：分多次 Digest 与一次性喂入同一串字节结果相同。
type X25 struct {
	sum uint16
}

// NewX25 创建累加器（初值 0xFFFF）
func NewX25() *X25 {
	return &X25{sum: 0xFFFF}
}

// DigestByte 累加单个字节
func (c *X25) DigestByte(b byte) {
	tmp := b ^ byte(c.sum&0xFF)
	tmp ^= tmp << 4
	c.sum = (c.sum >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// Digest 按顺序累加若干字节段
func (c *X25) Digest(chunks ...[]byte) {
	for _, chunk := range chunks {
		for _, b := range chunk {
			c.DigestByte(b)
		}
	}
}

// Sum 返回当前校验和（不消耗状态，可继续累加）
func (c *X25) Sum() uint16 {
	return c.sum
}

// Checksum16 一次性计算若干字节段的 CRC-16/MCRF4XX
func Checksum16(chunks ...[]byte) uint16 {
	c := NewX25()
	c.Digest(chunks...)
	return c.Sum()
}
