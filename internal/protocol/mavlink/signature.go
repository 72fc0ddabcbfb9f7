package mavlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"
)

// 签名结构尺寸常量
const (
	// SignatureSize 签名总长：link_id(1) + timestamp(6) + value(6)
	SignatureSize          = 13
	signatureTimestampSize = 6
	signatureValueSize     = 6

	// timestampMask 时间戳为 48 位计数器
	timestampMask = uint64(1)<<48 - 1
)

// signatureEpoch 签名时间戳纪元：2015-01-01 00:00:00 UTC，单位 0.1 微秒
var signatureEpoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

// SecretKey 签名密钥，固定 32 字节
type SecretKey [32]byte

// SecretKeyFromPassphrase 由口令派生密钥（SHA-256）
func SecretKeyFromPassphrase(s string) SecretKey {
	return sha256.Sum256([]byte(s))
}

// Signature MAVLink 2 帧签名。
// Value 是 SHA-256 MAC 的前 6 字节，详见 computeSignatureValue。
type Signature struct {
	LinkID    uint8
	Timestamp uint64
	Value     [signatureValueSize]byte
}

// Bytes 按线序编码签名：link_id | timestamp(6字节小端) | value(6字节)
func (s *Signature) Bytes() []byte {
	buf := make([]byte, SignatureSize)
	buf[0] = s.LinkID
	putUint48(buf[1:], s.Timestamp)
	copy(buf[1+signatureTimestampSize:], s.Value[:])
	return buf
}

// decodeSignature 解码 13 字节签名段。
// signed 标志已置位但字节数不足属于解码错误，不是"无签名"。
func decodeSignature(b []byte) (*Signature, error) {
	if len(b) < SignatureSize {
		return nil, ErrShortSignature
	}
	s := &Signature{LinkID: b[0], Timestamp: uint48(b[1:])}
	copy(s.Value[:], b[1+signatureTimestampSize:SignatureSize])
	return s, nil
}

// SignatureTimestamp 把时刻换算为 48 位签名时间戳（自 2015-01-01 起的 0.1µs 计数）
func SignatureTimestamp(t time.Time) uint64 {
	d := t.Sub(signatureEpoch)
	if d < 0 {
		return 0
	}
	return uint64(d.Nanoseconds()/100) & timestampMask
}

// computeSignatureValue 计算签名值：
// SHA256(secret_key ‖ 帧头字节(去magic) ‖ 完整载荷 ‖ 校验和小端 ‖ link_id ‖ 时间戳小端6字节)
// 取前 6 字节。签名不参与校验和计算。
func computeSignatureValue(key SecretKey, h *Header, p *Payload, checksum uint16, linkID uint8, timestamp uint64) [signatureValueSize]byte {
	digest := sha256.New()
	digest.Write(key[:])
	digest.Write(h.crcData())
	digest.Write(p.Full())

	var ckBuf [ChecksumSize]byte
	binary.LittleEndian.PutUint16(ckBuf[:], checksum)
	digest.Write(ckBuf[:])

	digest.Write([]byte{linkID})

	var tsBuf [signatureTimestampSize]byte
	putUint48(tsBuf[:], timestamp)
	digest.Write(tsBuf[:])

	var value [signatureValueSize]byte
	copy(value[:], digest.Sum(nil)[:signatureValueSize])
	return value
}

// Sign 为帧计算签名。帧的 incompat_flags 必须已置位签名标志
// （标志参与校验和计算，须在 FrameBuilder 构造期决定）。
func Sign(f *Frame, linkID uint8, timestamp uint64, key SecretKey) *Signature {
	timestamp &= timestampMask
	return &Signature{
		LinkID:    linkID,
		Timestamp: timestamp,
		Value:     computeSignatureValue(key, f.header, f.payload, f.checksum, linkID, timestamp),
	}
}

// Verifier 签名校验器，持有密钥与按 link_id 维护的重放防护状态。
// 同一 link_id 的时间戳必须严格递增，否则拒收。
// 这是整个编解码器中唯一需要的可变状态，内部加锁，可跨连接共享。
type Verifier struct {
	key  SecretKey
	mu   sync.Mutex
	last map[uint8]uint64
}

// NewVerifier 创建校验器
func NewVerifier(key SecretKey) *Verifier {
	return &Verifier{key: key, last: make(map[uint8]uint64)}
}

// Verify 校验帧签名并推进重放防护水位。
// 签名值与时间戳都通过后才更新该 link_id 的最近时间戳。
func (v *Verifier) Verify(f *Frame) error {
	sig := f.Signature()
	if sig == nil {
		return ErrSignatureMissing
	}

	want := computeSignatureValue(v.key, f.header, f.payload, f.checksum, sig.LinkID, sig.Timestamp)
	if !hmac.Equal(want[:], sig.Value[:]) {
		return ErrBadSignature
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if sig.Timestamp <= v.last[sig.LinkID] {
		return ErrStaleTimestamp
	}
	v.last[sig.LinkID] = sig.Timestamp
	return nil
}

// uint48 读取 6 字节小端整数
func uint48(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
}

// putUint48 写入 6 字节小端整数
func putUint48(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
}
