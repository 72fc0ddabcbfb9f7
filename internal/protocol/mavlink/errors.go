package mavlink

import "errors"

var (
	// ErrShortHeader 帧头字节数不足
	ErrShortHeader = errors.New("short header")
	// ErrInvalidMagic 非法的帧起始字节
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrInconsistentV2Header V2 帧头缺少 V2 专属字段（内部一致性错误，非输入问题）
	ErrInconsistentV2Header = errors.New("inconsistent v2 header: missing v2 fields")
	// ErrV2FieldsOnV1 V1 帧头不允许携带 incompat/compat 标志
	ErrV2FieldsOnV1 = errors.New("v1 header cannot carry v2 flags")
	// ErrMissingV2Fields 构造 V2 帧头必须显式给出 incompat/compat 标志
	ErrMissingV2Fields = errors.New("v2 header requires incompat/compat flags")
	// ErrMessageIDRange message_id 超出版本上限（V1≤255，V2≤2^24-1）
	ErrMessageIDRange = errors.New("message id out of range")
	// ErrBroadcastSource system_id/component_id 为 0 是广播保留值，不能作为发送方
	ErrBroadcastSource = errors.New("broadcast id cannot originate a frame")
	// ErrPayloadTooLong 载荷超过协议上限 255 字节
	ErrPayloadTooLong = errors.New("payload exceeds 255 bytes")
	// ErrVersionRequired 构造帧/帧头时未指定协议版本
	ErrVersionRequired = errors.New("protocol version required")
	// ErrMessageRequired 构造帧时未提供消息
	ErrMessageRequired = errors.New("message required")

	// ErrChecksumMismatch 校验和不匹配（帧结构合法但内容损坏或 CRC_EXTRA 不符）
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnknownMessage 方言中不存在该 message_id
	ErrUnknownMessage = errors.New("unknown message id")
	// ErrVersionUnsupported 消息要求的最低协议版本高于帧版本
	ErrVersionUnsupported = errors.New("message not supported by frame version")

	// ErrSignatureMissing signed 标志已置位但帧内没有签名
	ErrSignatureMissing = errors.New("signature missing")
	// ErrShortSignature 签名字节数不足 13 字节
	ErrShortSignature = errors.New("short signature")
	// ErrBadSignature 签名值校验失败
	ErrBadSignature = errors.New("bad signature")
	// ErrStaleTimestamp 签名时间戳未严格递增（疑似重放）
	ErrStaleTimestamp = errors.New("stale signature timestamp")
	// ErrSignatureUnsupported 仅 MAVLink 2 支持签名
	ErrSignatureUnsupported = errors.New("signing requires MAVLink 2")
)
