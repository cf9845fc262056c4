package xbar

import (
	"os"
	"strings"
)

// CollectConsole 为一次命令行调用生成快照并保存，不经过投递选择。
// 调试栏未启用时返回 nil。
func (d *Debugbar) CollectConsole(args []string) *Snapshot {
	if d == nil || !d.IsEnabled() {
		return nil
	}
	d.Boot()

	meta := newMeta(d.CurrentRequestID(), d.opts.now())
	meta.Method = "CLI"
	meta.URI = strings.Join(args, " ")
	meta.IP = os.Getenv("SSH_CLIENT")

	snap := NewSnapshot(meta, d.registry.collectors()...)
	d.recordSize(d.ctx, snap)
	d.save(d.ctx, snap)
	return snap
}
