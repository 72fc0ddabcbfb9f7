package mavlink

// 帧结构尺寸常量
const (
	// HeaderSizeV1 MAVLink 1 帧头长度（含 magic）
	HeaderSizeV1 = 6
	// HeaderSizeV2 MAVLink 2 帧头长度（含 magic）
	HeaderSizeV2 = 10
	// ChecksumSize 校验和字节数（小端 u16）
	ChecksumSize = 2
	// MaxPayloadSize 载荷硬上限
	MaxPayloadSize = 255

	// MessageIDMaxV1 V1 message_id 上限
	MessageIDMaxV1 = 0xFF
	// MessageIDMaxV2 V2 message_id 上限（24位）
	MessageIDMaxV2 = 0xFFFFFF

	// IncompatFlagSigned incompat_flags 的"已签名"位（MAVLINK_IFLAG_SIGNED）
	IncompatFlagSigned byte = 0x01
)

// V2Fields MAVLink 2 专属帧头字段。
// incompat_flags 接收方必须全部理解，否则应丢弃整帧；compat_flags 可以安全忽略。
type V2Fields struct {
	IncompatFlags byte
	CompatFlags   byte
}

// Signed 判断 incompat_flags 是否置位签名标志
func (f V2Fields) Signed() bool {
	return f.IncompatFlags&IncompatFlagSigned != 0
}

// Header MAVLink 帧头。
// V1/V2 两种不兼容的头格式收敛在同一类型：版本由 magic 决定，
// V2 专属字段用 *V2Fields 承载，构造期一次性校验一致性（V1 永不携带，V2 必须携带）。
type Header struct {
	version       Version
	payloadLength uint8
	v2            *V2Fields
	sequence      uint8
	systemID      uint8
	componentID   uint8
	messageID     uint32
}

// Version 协议版本
func (h *Header) Version() Version { return h.version }

// PayloadLength 帧头声明的载荷长度（V2 下为截断后的长度）
func (h *Header) PayloadLength() uint8 { return h.payloadLength }

// V2 返回 V2 专属字段，V1 帧头为 nil
func (h *Header) V2() *V2Fields { return h.v2 }

// Sequence 帧序号（发送方每帧自增，用于丢包检测）
func (h *Header) Sequence() uint8 { return h.sequence }

// SystemID 发送方系统 ID
func (h *Header) SystemID() uint8 { return h.systemID }

// ComponentID 发送方组件 ID
func (h *Header) ComponentID() uint8 { return h.componentID }

// MessageID 消息类型 ID（V1 为 u8，V2 为 24 位）
func (h *Header) MessageID() uint32 { return h.messageID }

// Size 帧头字节数（由版本决定）
func (h *Header) Size() int { return h.version.HeaderSize() }

// Signed 判断帧体是否应携带签名。
// V2 帧头缺少 V2 字段属于内部一致性错误（ErrInconsistentV2Header），
// 与输入畸形错误区分开。
func (h *Header) Signed() (bool, error) {
	switch h.version {
	case V1:
		return false, nil
	case V2:
		if h.v2 == nil {
			return false, ErrInconsistentV2Header
		}
		return h.v2.Signed(), nil
	}
	return false, ErrVersionRequired
}

// ExpectedBodyLength 帧头之后应读取的帧体字节数：
// payload_length + 2（校验和），签名帧再加 13。
func (h *Header) ExpectedBodyLength() (int, error) {
	signed, err := h.Signed()
	if err != nil {
		return 0, err
	}
	n := int(h.payloadLength) + ChecksumSize
	if signed {
		n += SignatureSize
	}
	return n, nil
}

// Bytes 按线序编码帧头：
// magic | payload_length | [incompat|compat] | sequence | system_id | component_id | message_id
func (h *Header) Bytes() []byte {
	buf := make([]byte, 0, h.Size())
	buf = append(buf, h.version.Magic(), h.payloadLength)
	if h.version == V2 && h.v2 != nil {
		buf = append(buf, h.v2.IncompatFlags, h.v2.CompatFlags)
	}
	buf = append(buf, h.sequence, h.systemID, h.componentID)
	switch h.version {
	case V1:
		buf = append(buf, byte(h.messageID))
	case V2:
		// 24 位小端
		buf = append(buf, byte(h.messageID), byte(h.messageID>>8), byte(h.messageID>>16))
	}
	return buf
}

// crcData 校验和输入中的帧头部分（去掉 magic）
func (h *Header) crcData() []byte {
	return h.Bytes()[1:]
}

// DecodeHeader 按线序解码帧头。
// 输入必须以合法 magic 开头，且长度不小于对应版本的帧头长度。
func DecodeHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSizeV1 {
		return nil, ErrShortHeader
	}
	version, ok := VersionFromMagic(b[0])
	if !ok {
		return nil, ErrInvalidMagic
	}

	h := &Header{version: version}
	switch version {
	case V1:
		h.payloadLength = b[1]
		h.sequence = b[2]
		h.systemID = b[3]
		h.componentID = b[4]
		h.messageID = uint32(b[5])
	case V2:
		if len(b) < HeaderSizeV2 {
			return nil, ErrShortHeader
		}
		h.payloadLength = b[1]
		h.v2 = &V2Fields{IncompatFlags: b[2], CompatFlags: b[3]}
		h.sequence = b[4]
		h.systemID = b[5]
		h.componentID = b[6]
		h.messageID = uint32(b[7]) | uint32(b[8])<<8 | uint32(b[9])<<16
	}
	return h, nil
}

// HeaderBuilder 帧头构造器。
// 一致性校验只在 Build 做一次：版本与字段的匹配、message_id 上限、
// 发送方 ID 非广播，全部不通过则拒绝产出帧头。
type HeaderBuilder struct {
	version       Version
	payloadLength uint8
	sequence      uint8
	systemID      uint8
	componentID   uint8
	messageID     uint32
	incompat      byte
	compat        byte
	flagsSet      bool
}

// NewHeaderBuilder 创建指定版本的帧头构造器
func NewHeaderBuilder(v Version) *HeaderBuilder {
	return &HeaderBuilder{version: v}
}

// PayloadLength 设置载荷长度
func (b *HeaderBuilder) PayloadLength(n uint8) *HeaderBuilder {
	b.payloadLength = n
	return b
}

// Sequence 设置帧序号
func (b *HeaderBuilder) Sequence(seq uint8) *HeaderBuilder {
	b.sequence = seq
	return b
}

// SystemID 设置发送方系统 ID
func (b *HeaderBuilder) SystemID(id uint8) *HeaderBuilder {
	b.systemID = id
	return b
}

// ComponentID 设置发送方组件 ID
func (b *HeaderBuilder) ComponentID(id uint8) *HeaderBuilder {
	b.componentID = id
	return b
}

// MessageID 设置消息 ID
func (b *HeaderBuilder) MessageID(id uint32) *HeaderBuilder {
	b.messageID = id
	return b
}

// Flags 设置 V2 incompat/compat 标志（V2 必须调用，V1 调用将导致 Build 失败）
func (b *HeaderBuilder) Flags(incompat, compat byte) *HeaderBuilder {
	b.incompat = incompat
	b.compat = compat
	b.flagsSet = true
	return b
}

// Build 校验并产出帧头
func (b *HeaderBuilder) Build() (*Header, error) {
	switch b.version {
	case V1:
		if b.flagsSet {
			return nil, ErrV2FieldsOnV1
		}
		if b.messageID > MessageIDMaxV1 {
			return nil, ErrMessageIDRange
		}
	case V2:
		if !b.flagsSet {
			return nil, ErrMissingV2Fields
		}
		if b.messageID > MessageIDMaxV2 {
			return nil, ErrMessageIDRange
		}
	default:
		return nil, ErrVersionRequired
	}
	if b.systemID == 0 || b.componentID == 0 {
		return nil, ErrBroadcastSource
	}

	h := &Header{
		version:       b.version,
		payloadLength: b.payloadLength,
		sequence:      b.sequence,
		systemID:      b.systemID,
		componentID:   b.componentID,
		messageID:     b.messageID,
	}
	if b.version == V2 {
		h.v2 = &V2Fields{IncompatFlags: b.incompat, CompatFlags: b.compat}
	}
	return h, nil
}
