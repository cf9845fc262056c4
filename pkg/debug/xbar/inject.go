package xbar

import "bytes"

var closingBody = []byte("</body>")

// Inject 把 markup 插入到 body 中最后一个 </body>（忽略大小写）之前，
// 找不到时追加到末尾。返回新的切片，body 不被修改。
func Inject(body, markup []byte) []byte {
	out := make([]byte, 0, len(body)+len(markup))
	pos := lastIndexFold(body, closingBody)
	if pos < 0 {
		out = append(out, body...)
		return append(out, markup...)
	}
	out = append(out, body[:pos]...)
	out = append(out, markup...)
	return append(out, body[pos:]...)
}

// lastIndexFold 按字节偏移从后向前查找 sep。sep 为 ASCII，匹配位置总落在 UTF-8 字符边界上。
func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i] == '<' && bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
