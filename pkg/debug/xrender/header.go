package xrender

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// HeaderPrefix 数据响应头的名称前缀。
const HeaderPrefix = "X-Debugbar-Data"

// EncodeHeader 把 data 编码为 base64(JSON)。
func EncodeHeader(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeHeader 是 EncodeHeader 的逆操作，用于测试和命令行工具。
func DecodeHeader(value string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

// ChunkHeader 把编码后的值按 size 字节切分，返回响应头名与值的有序列表。
// 第一段使用 prefix 本身，其余依次为 prefix-1、prefix-2……
// base64 只含 ASCII，按字节切分是安全的。
func ChunkHeader(prefix, value string, size int) ([][2]string, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if value == "" {
		return nil, nil
	}
	out := make([][2]string, 0, (len(value)+size-1)/size)
	for i := 0; len(value) > 0; i++ {
		n := min(size, len(value))
		name := prefix
		if i > 0 {
			name = prefix + "-" + strconv.Itoa(i)
		}
		out = append(out, [2]string{name, value[:n]})
		value = value[n:]
	}
	return out, nil
}
