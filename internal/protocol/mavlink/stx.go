package mavlink

// Version MAVLink 协议版本，由帧首的 magic 字节（STX）唯一确定
type Version uint8

const (
	// V1 MAVLink 1（STX=0xFE，6字节头）
	V1 Version = 1
	// V2 MAVLink 2（STX=0xFD，10字节头，支持签名与载荷截断）
	V2 Version = 2
)

const (
	// MagicV1 MAVLink 1 帧起始标志
	MagicV1 byte = 0xFE
	// MagicV2 MAVLink 2 帧起始标志
	MagicV2 byte = 0xFD
)

// VersionFromMagic 根据 magic 字节识别协议版本
func VersionFromMagic(b byte) (Version, bool) {
	switch b {
	case MagicV1:
		return V1, true
	case MagicV2:
		return V2, true
	}
	return 0, false
}

// IsMagic 判断是否为合法的帧起始字节
func IsMagic(b byte) bool {
	_, ok := VersionFromMagic(b)
	return ok
}

// Magic 返回该版本对应的 STX 字节
func (v Version) Magic() byte {
	if v == V2 {
		return MagicV2
	}
	return MagicV1
}

// HeaderSize 返回该版本的帧头长度（含 magic）
func (v Version) HeaderSize() int {
	if v == V2 {
		return HeaderSizeV2
	}
	return HeaderSizeV1
}

func (v Version) String() string {
	switch v {
	case V1:
		return "MAVLink 1"
	case V2:
		return "MAVLink 2"
	}
	return "unknown"
}
