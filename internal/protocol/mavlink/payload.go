package mavlink

// Payload 消息载荷容器。
// declared 是帧头声明的载荷长度（线上的实际字节数）；内部缓冲不超过 declared，
// 超出部分在构造时即被丢弃。V2 的尾零截断只影响 Bytes() 视图，
// 校验和/签名必须用 Full() 还原出完整 declared 长度。
type Payload struct {
	id       uint32
	buf      []byte
	declared uint8
	version  Version
}

// NewPayload 创建载荷容器。
// bytes 超过 declared 或 255 字节的部分被丢弃；短于 declared 的部分视为零。
func NewPayload(id uint32, bytes []byte, version Version, declared int) *Payload {
	if declared > MaxPayloadSize {
		declared = MaxPayloadSize
	}
	if declared < 0 {
		declared = 0
	}
	n := len(bytes)
	if n > declared {
		n = declared
	}
	buf := make([]byte, n)
	copy(buf, bytes[:n])
	return &Payload{id: id, buf: buf, declared: uint8(declared), version: version}
}

// ID 消息 ID
func (p *Payload) ID() uint32 { return p.id }

// Version 协议版本
func (p *Payload) Version() Version { return p.version }

// Length 声明长度（与帧头 payload_length 一致）
func (p *Payload) Length() uint8 { return p.declared }

// Bytes 载荷的版本视图：
// V1 返回完整 declared 长度（不足补零）；V2 去掉末尾连续的零字节
// （全零载荷截断为空）。
func (p *Payload) Bytes() []byte {
	if p.version == V2 {
		return p.buf[:truncatedLength(p.buf)]
	}
	return p.Full()
}

// Full 按 declared 长度补零还原的完整载荷。
// 校验和与签名都以它为输入，线上传输的也是这一段。
func (p *Payload) Full() []byte {
	if len(p.buf) == int(p.declared) {
		return p.buf
	}
	full := make([]byte, p.declared)
	copy(full, p.buf)
	return full
}

// truncatedLength 从尾部扫描，返回截断到最后一个非零字节（含）的长度。
// 对已截断的数据再截断是恒等操作。
func truncatedLength(b []byte) int {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return n
}
