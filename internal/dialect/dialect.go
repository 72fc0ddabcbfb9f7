// Package dialect 解析 MAVLink 方言定义（XML），推导编解码器消费的每消息常量：
// CRC_EXTRA、最低协议版本、V1/V2 固定载荷长度。
// 字段语义、枚举等不在解析范围内，编解码器不需要它们。
package dialect

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/taoyao-code/mav-gateway/internal/protocol/mavlink"
)

var (
	// ErrUnknownFieldType 字段类型不在 MAVLink 基础类型表中
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrBadMessageID 消息 ID 缺失或超出 24 位上限
	ErrBadMessageID = errors.New("bad message id")
	// ErrPayloadOverflow 消息编码长度超过 255 字节协议上限
	ErrPayloadOverflow = errors.New("message payload exceeds 255 bytes")
)

// baseTypeSizes MAVLink 基础类型的编码字节数
var baseTypeSizes = map[string]int{
	"char":     1,
	"int8_t":   1,
	"uint8_t":  1,
	"int16_t":  2,
	"uint16_t": 2,
	"int32_t":  4,
	"uint32_t": 4,
	"float":    4,
	"int64_t":  8,
	"uint64_t": 8,
	"double":   8,
	// 历史别名，CRC_EXTRA 计算按 uint8_t 参与
	"uint8_t_mavlink_version": 1,
}

// field 消息字段定义（仅线格式相关部分）
type field struct {
	name      string
	baseType  string // 去掉数组后缀的基础类型
	size      int    // 单元素字节数
	arrayLen  int    // 0 表示非数组
	extension bool   // 位于 <extensions/> 标记之后
	index     int    // XML 定义顺序
}

// wireSize 字段编码后的字节数
func (f field) wireSize() int {
	if f.arrayLen > 0 {
		return f.size * f.arrayLen
	}
	return f.size
}

// message 一条消息定义
type message struct {
	id     uint32
	name   string
	fields []field
}

// Load 从文件加载方言定义
func Load(path string) (mavlink.Dialect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dialect: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse 解析方言 XML，产出消息常量表。
// <include> 不展开（部署时使用合并后的定义文件）；枚举与描述文本跳过。
func Parse(r io.Reader) (mavlink.Dialect, error) {
	messages, err := parseMessages(r)
	if err != nil {
		return nil, err
	}

	out := make(mavlink.Dialect, len(messages))
	for _, m := range messages {
		info, err := deriveInfo(m)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.name, err)
		}
		out[m.id] = info
	}
	return out, nil
}

// parseMessages 事件式扫描 XML，收集 <message> 元素及其字段。
// <extensions/> 是位置标记：其后的字段为扩展字段。
func parseMessages(r io.Reader) ([]message, error) {
	dec := xml.NewDecoder(r)

	var messages []message
	var current *message
	inExtensions := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse dialect xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "message":
				m, err := startMessage(el)
				if err != nil {
					return nil, err
				}
				current = m
				inExtensions = false
			case "extensions":
				inExtensions = true
			case "field":
				if current == nil {
					continue
				}
				f, err := parseField(el, len(current.fields), inExtensions)
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", current.name, err)
				}
				current.fields = append(current.fields, f)
				// 字段元素内是描述文本，整体跳过
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("parse dialect xml: %w", err)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "message" && current != nil {
				messages = append(messages, *current)
				current = nil
			}
		}
	}
	return messages, nil
}

func startMessage(el xml.StartElement) (*message, error) {
	m := &message{}
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "id":
			id, err := strconv.ParseUint(attr.Value, 10, 32)
			if err != nil || id > mavlink.MessageIDMaxV2 {
				return nil, fmt.Errorf("%w: %q", ErrBadMessageID, attr.Value)
			}
			m.id = uint32(id)
		case "name":
			m.name = attr.Value
		}
	}
	if m.name == "" {
		return nil, fmt.Errorf("%w: message without name", ErrBadMessageID)
	}
	return m, nil
}

func parseField(el xml.StartElement, index int, extension bool) (field, error) {
	f := field{index: index, extension: extension}
	var rawType string
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "type":
			rawType = attr.Value
		case "name":
			f.name = attr.Value
		}
	}

	baseType, arrayLen, err := splitArrayType(rawType)
	if err != nil {
		return field{}, err
	}
	size, ok := baseTypeSizes[baseType]
	if !ok {
		return field{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, rawType)
	}
	f.baseType = baseType
	f.size = size
	f.arrayLen = arrayLen
	return f, nil
}

// splitArrayType 把 "uint16_t[4]" 拆为基础类型与数组长度
func splitArrayType(t string) (string, int, error) {
	open := strings.IndexByte(t, '[')
	if open < 0 {
		return t, 0, nil
	}
	if !strings.HasSuffix(t, "]") {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
	}
	n, err := strconv.Atoi(t[open+1 : len(t)-1])
	if err != nil || n <= 0 || n > 255 {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
	}
	return t[:open], n, nil
}

// deriveInfo 由消息定义推导编解码器常量。
// 线序：非扩展字段按类型字节数降序稳定排序，扩展字段保持定义顺序追加在后。
// CRC_EXTRA 用编解码器自己的 CRC-16/MCRF4XX 累加器计算：
// 消息名 + 空格，然后按线序对每个非扩展字段累加 "类型名 字段名 "，
// 数组字段再累加一个数组长度字节；最后取低字节异或高字节。
func deriveInfo(m message) (mavlink.MessageInfo, error) {
	ordered := wireOrder(m.fields)

	crc := mavlink.NewX25()
	crc.Digest([]byte(m.name + " "))

	sizeV1, sizeV2 := 0, 0
	for _, f := range ordered {
		sizeV2 += f.wireSize()
		if f.extension {
			continue
		}
		sizeV1 += f.wireSize()

		crcType := f.baseType
		if crcType == "uint8_t_mavlink_version" {
			crcType = "uint8_t"
		}
		crc.Digest([]byte(crcType + " "))
		crc.Digest([]byte(f.name + " "))
		if f.arrayLen > 0 {
			crc.DigestByte(byte(f.arrayLen))
		}
	}
	if sizeV2 > mavlink.MaxPayloadSize {
		return mavlink.MessageInfo{}, ErrPayloadOverflow
	}

	sum := crc.Sum()
	minVersion := mavlink.V1
	if m.id > mavlink.MessageIDMaxV1 {
		minVersion = mavlink.V2
	}
	return mavlink.MessageInfo{
		CRCExtra:      byte(sum&0xFF) ^ byte(sum>>8),
		MinVersion:    minVersion,
		PayloadSizeV1: sizeV1,
		PayloadSizeV2: sizeV2,
	}, nil
}

// wireOrder 非扩展字段按类型字节数降序稳定排序，扩展字段不参与排序
func wireOrder(fields []field) []field {
	ordered := make([]field, len(fields))
	copy(ordered, fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].extension != ordered[j].extension {
			return !ordered[i].extension
		}
		if ordered[i].extension {
			// 扩展字段保持定义顺序
			return ordered[i].index < ordered[j].index
		}
		return ordered[i].size > ordered[j].size
	})
	return ordered
}
