package mavlink

import "fmt"

// MessageInfo 方言/代码生成层为每个消息类型提供的常量。
// 编解码器只消费这四项，对字段语义不感知。
type MessageInfo struct {
	// CRCExtra 由消息字段布局推导的校验和附加字节，用于发现方言不匹配
	CRCExtra byte
	// MinVersion 该消息要求的最低协议版本
	MinVersion Version
	// PayloadSizeV1 V1 下的固定编码载荷长度
	PayloadSizeV1 int
	// PayloadSizeV2 V2 下的固定编码载荷长度（截断前）
	PayloadSizeV2 int
}

// Dialect 消息 ID 到消息常量的映射，作为显式参数传入校验调用，
// 编解码器自身不持有任何方言状态。
type Dialect map[uint32]MessageInfo

// Info 查询消息常量
func (d Dialect) Info(id uint32) (MessageInfo, error) {
	info, ok := d[id]
	if !ok {
		return MessageInfo{}, fmt.Errorf("message %d: %w", id, ErrUnknownMessage)
	}
	return info, nil
}

// Validate 在方言上下文中校验帧：消息存在、版本满足、校验和匹配。
// 校验和失败对流是非致命的，调用方可丢弃该帧并继续读流。
func (d Dialect) Validate(f *Frame) error {
	info, err := d.Info(f.MessageID())
	if err != nil {
		return err
	}
	if info.MinVersion == V2 && f.Version() == V1 {
		return fmt.Errorf("message %d: %w", f.MessageID(), ErrVersionUnsupported)
	}
	return f.ValidateChecksum(info.CRCExtra)
}
