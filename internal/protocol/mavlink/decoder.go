package mavlink

import (
	"bufio"
	"encoding/binary"
	"io"
)

// decodeState 解码状态机：同步 -> 帧头 -> 帧体 -> 产出
type decodeState int

const (
	stateAwaitSync decodeState = iota
	stateAwaitHeader
	stateAwaitBody
)

// Decoder 阻塞式流解码器。
// 在字节流中搜索帧起始标志，丢弃其间的噪声字节；帧头/帧体阶段的畸形数据
// 只终止当前这次解帧尝试并回到同步态，绝不把损坏字节带入下一帧。
// 失去同步是正常工况而非错误，对调用方不可见。
// 校验和与签名依赖方言知识，由调用方在拿到帧后验证。
// 非并发安全：每条链路各持一个 Decoder。
type Decoder struct {
	r         *bufio.Reader
	state     decodeState
	discarded uint64
}

// NewDecoder 包装字节源创建解码器
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 512)}
}

// Discarded 同步过程中累计丢弃的噪声字节数
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}

// Next 阻塞读取并解出下一帧。
// 字节源耗尽返回 io.EOF；帧中途断流返回 io.ErrUnexpectedEOF。
func (d *Decoder) Next() (*Frame, error) {
	for {
		d.state = stateAwaitSync
		version, err := d.sync()
		if err != nil {
			return nil, err
		}

		d.state = stateAwaitHeader
		headerBytes := make([]byte, version.HeaderSize())
		headerBytes[0] = version.Magic()
		if _, err := io.ReadFull(d.r, headerBytes[1:]); err != nil {
			return nil, unexpectedEOF(err)
		}
		header, err := DecodeHeader(headerBytes)
		if err != nil {
			// 畸形帧头：丢弃本次尝试，回到同步态
			d.discarded += uint64(len(headerBytes))
			continue
		}
		bodyLength, err := header.ExpectedBodyLength()
		if err != nil {
			d.discarded += uint64(len(headerBytes))
			continue
		}

		d.state = stateAwaitBody
		body := make([]byte, bodyLength)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return nil, unexpectedEOF(err)
		}
		return assembleFrame(header, body)
	}
}

// sync 消费并丢弃所有非 magic 字节，返回下一帧的协议版本。
// magic 值出现在噪声中也会被当作帧头起点，真伪由后续校验和裁决，
// 失败后从那之后的位置重新同步（已丢弃字节不回溯）。
func (d *Decoder) sync() (Version, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if version, ok := VersionFromMagic(b); ok {
			return version, nil
		}
		d.discarded++
	}
}

// assembleFrame 把帧体切分为载荷、校验和与可选签名
func assembleFrame(header *Header, body []byte) (*Frame, error) {
	payloadLength := int(header.PayloadLength())
	payload := NewPayload(header.MessageID(), body[:payloadLength], header.Version(), payloadLength)

	checksum := binary.LittleEndian.Uint16(body[payloadLength : payloadLength+ChecksumSize])

	frame := &Frame{header: header, payload: payload, checksum: checksum}

	signed, err := header.Signed()
	if err != nil {
		return nil, err
	}
	if signed {
		signature, err := decodeSignature(body[payloadLength+ChecksumSize:])
		if err != nil {
			return nil, err
		}
		frame.signature = signature
	}
	return frame, nil
}

// DecodeFrame 从字节源解出一帧（一次性便捷入口）
func DecodeFrame(r io.Reader) (*Frame, error) {
	return NewDecoder(r).Next()
}

// unexpectedEOF 帧中途断流统一折算为 io.ErrUnexpectedEOF
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
