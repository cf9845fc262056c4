package xcollect

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatDuration 格式化时长：小于 1ms 用 μs，小于 1s 用 ms，否则用 s。
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return strconv.FormatInt(d.Microseconds(), 10) + "μs"
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes 以 1024 为基数格式化字节数，保留两位小数并去掉多余的零。
func FormatBytes(n int64) string {
	if n == 0 {
		return "0B"
	}
	sign := ""
	f := float64(n)
	if n < 0 {
		sign = "-"
		f = -f
	}

	base := math.Log(f) / math.Log(1024)
	idx := min(int(math.Floor(base)), len(byteUnits)-1)
	value := f / math.Pow(1024, float64(idx))
	return sign + strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + byteUnits[idx]
}
