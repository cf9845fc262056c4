// Package xconf 提供调试栏使用的配置源，基于 koanf 实现。
//
// # 设计理念
//
// 调试栏只需要"按点分键读取，缺省时使用调用方默认值"这一种能力，
// 因此 xconf 对外暴露的是 [Source] 接口而不是完整的 koanf API：
//
//	cfg, _ := xconf.New("/etc/app/debugbar.yaml")
//	if cfg.Bool("collectors.db", true) { ... }
//
// 键采用点分路径，例如 "collectors.time"、"options.db.timeline"、"storage.path"。
// 读取永不报错：键不存在或类型不匹配时返回默认值。
//
// # 支持的格式
//
//   - YAML（推荐）：.yaml, .yml
//   - JSON：.json
//
// # 请求级覆盖
//
// [Overlay] 在共享配置之上叠加一层请求私有的写入层。
// 调试栏的 Enable/Disable 只写入覆盖层，因此注入完成后的强制禁用
// 只影响当前请求，不会泄漏到其它并发请求。
//
// # 热重载
//
// [Watch] 使用 fsnotify 监听配置文件所在目录，文件变化后防抖重载，
// 可用于在不重启进程的情况下全局开关调试栏。
//
// # 并发安全
//
// 所有 Source 实现都是并发安全的。
package xconf
