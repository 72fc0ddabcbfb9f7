package mavlink

import "encoding/binary"

// Frame 一个完整的 MAVLink 帧：帧头 + 载荷 + 校验和 + 可选签名。
// 由解码器或 FrameBuilder 构造，构造后不可变。
type Frame struct {
	header    *Header
	payload   *Payload
	checksum  uint16
	signature *Signature
}

// Header 帧头
func (f *Frame) Header() *Header { return f.header }

// Payload 载荷
func (f *Frame) Payload() *Payload { return f.payload }

// Checksum CRC-16/MCRF4XX 校验和
func (f *Frame) Checksum() uint16 { return f.checksum }

// Signature 签名，未签名帧为 nil
func (f *Frame) Signature() *Signature { return f.signature }

// Version 协议版本
func (f *Frame) Version() Version { return f.header.version }

// MessageID 消息 ID
func (f *Frame) MessageID() uint32 { return f.header.messageID }

// Sequence 帧序号
func (f *Frame) Sequence() uint8 { return f.header.sequence }

// SystemID 发送方系统 ID
func (f *Frame) SystemID() uint8 { return f.header.systemID }

// ComponentID 发送方组件 ID
func (f *Frame) ComponentID() uint8 { return f.header.componentID }

// PayloadLength 帧头声明的载荷长度
func (f *Frame) PayloadLength() uint8 { return f.header.payloadLength }

// Encode 按线序编码整帧：帧头 | 载荷(payload_length字节) | 校验和小端 | [签名]
func (f *Frame) Encode() []byte {
	size := f.header.Size() + int(f.header.payloadLength) + ChecksumSize
	if f.signature != nil {
		size += SignatureSize
	}
	buf := make([]byte, 0, size)
	buf = append(buf, f.header.Bytes()...)
	buf = append(buf, f.payload.Full()...)

	var ckBuf [ChecksumSize]byte
	binary.LittleEndian.PutUint16(ckBuf[:], f.checksum)
	buf = append(buf, ckBuf[:]...)

	if f.signature != nil {
		buf = append(buf, f.signature.Bytes()...)
	}
	return buf
}

// ComputeChecksum 计算帧校验和。
// 输入依次为：帧头字节（去 magic）、完整载荷（payload_length 字节）、
// 以及方言层提供的单字节 CRC_EXTRA。签名不参与计算。
func (f *Frame) ComputeChecksum(crcExtra byte) uint16 {
	c := NewX25()
	c.Digest(f.header.crcData(), f.payload.Full())
	c.DigestByte(crcExtra)
	return c.Sum()
}

// ValidateChecksum 重算并比对校验和
func (f *Frame) ValidateChecksum(crcExtra byte) error {
	if f.ComputeChecksum(crcExtra) != f.checksum {
		return ErrChecksumMismatch
	}
	return nil
}

// FrameBuilder 帧构造器（编码路径）。
// 路由字段 + 消息(id/载荷/CRC_EXTRA)进，校验通过的不可变 Frame 出；
// 校验和总是计算，签名仅在调用 Sign 后计算。
// 任何不一致（版本与字段不符、载荷超限、message_id 越界、广播 ID 作为发送方）
// 都在 Build 拒绝，绝不静默修正。
type FrameBuilder struct {
	version     Version
	sequence    uint8
	systemID    uint8
	componentID uint8
	incompat    byte
	compat      byte

	messageID  uint32
	payload    []byte
	crcExtra   byte
	messageSet bool

	sign      bool
	linkID    uint8
	timestamp uint64
	key       SecretKey
}

// NewFrameBuilder 创建指定协议版本的帧构造器
func NewFrameBuilder(v Version) *FrameBuilder {
	return &FrameBuilder{version: v}
}

// SystemID 设置发送方系统 ID
func (b *FrameBuilder) SystemID(id uint8) *FrameBuilder {
	b.systemID = id
	return b
}

// ComponentID 设置发送方组件 ID
func (b *FrameBuilder) ComponentID(id uint8) *FrameBuilder {
	b.componentID = id
	return b
}

// Sequence 设置帧序号
func (b *FrameBuilder) Sequence(seq uint8) *FrameBuilder {
	b.sequence = seq
	return b
}

// Flags 设置 V2 incompat/compat 标志（V2 下未调用时默认全零）
func (b *FrameBuilder) Flags(incompat, compat byte) *FrameBuilder {
	b.incompat = incompat
	b.compat = compat
	return b
}

// Message 设置消息：编码后的载荷与该消息类型的 CRC_EXTRA。
// 编解码器对字段语义不感知，CRC_EXTRA 由方言/代码生成层提供。
func (b *FrameBuilder) Message(id uint32, payload []byte, crcExtra byte) *FrameBuilder {
	b.messageID = id
	b.payload = payload
	b.crcExtra = crcExtra
	b.messageSet = true
	return b
}

// Sign 要求对帧签名（仅 V2）。timestamp 是 48 位签名时间戳，
// 同一 link_id 下发送方必须保证严格递增。
func (b *FrameBuilder) Sign(linkID uint8, timestamp uint64, key SecretKey) *FrameBuilder {
	b.sign = true
	b.linkID = linkID
	b.timestamp = timestamp
	b.key = key
	return b
}

// Build 校验一致性并产出帧
func (b *FrameBuilder) Build() (*Frame, error) {
	if b.version != V1 && b.version != V2 {
		return nil, ErrVersionRequired
	}
	if !b.messageSet {
		return nil, ErrMessageRequired
	}
	if len(b.payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLong
	}
	if b.sign && b.version != V2 {
		return nil, ErrSignatureUnsupported
	}

	// V2 线上不传输末尾连续的零字节，payload_length 记录截断后的长度
	declared := len(b.payload)
	if b.version == V2 {
		declared = truncatedLength(b.payload)
	}

	hb := NewHeaderBuilder(b.version).
		PayloadLength(uint8(declared)).
		Sequence(b.sequence).
		SystemID(b.systemID).
		ComponentID(b.componentID).
		MessageID(b.messageID)
	if b.version == V2 {
		incompat := b.incompat
		if b.sign {
			incompat |= IncompatFlagSigned
		}
		hb.Flags(incompat, b.compat)
	}
	header, err := hb.Build()
	if err != nil {
		return nil, err
	}

	payload := NewPayload(b.messageID, b.payload, b.version, declared)
	frame := &Frame{header: header, payload: payload}
	frame.checksum = frame.ComputeChecksum(b.crcExtra)

	if b.sign {
		frame.signature = Sign(frame, b.linkID, b.timestamp, b.key)
	}
	return frame, nil
}
