package xconf

// Defaults 返回调试栏的默认配置（点分键）。
//
// 调试栏读取每个键时都会带上同样的默认值，这份表主要用于
// 生成示例配置文件以及在 config 面板中展示完整配置。
// 每次调用返回新的 map，调用方可以自由修改。
func Defaults() map[string]any {
	return map[string]any{
		"enabled":         false,
		"inject":          true,
		"capture_ajax":    true,
		"include_vendors": true,
		"route_prefix":    "_debugbar",

		"header.max_length": 4096,
		"header.max_total":  250000,

		"storage.enabled":    true,
		"storage.driver":     "file",
		"storage.path":       "storage/debugbar",
		"storage.ttl":        "24h",
		"storage.prune":      "@hourly",
		"storage.prune_lock": true,

		"collectors.runtime":         true,
		"collectors.messages":        true,
		"collectors.time":            true,
		"collectors.memory":          true,
		"collectors.exceptions":      true,
		"collectors.app":             false,
		"collectors.default_request": false,
		"collectors.events":          false,
		"collectors.views":           true,
		"collectors.route":           false,
		"collectors.log":             true,
		"collectors.db":              true,
		"collectors.mail":            true,
		"collectors.logs":            false,
		"collectors.files":           false,
		"collectors.auth":            false,
		"collectors.trace":           true,
		"collectors.config":          false,
		"collectors.request":         true,

		"options.exceptions.chain": true,
		"options.views.data":       true,
		"options.db.timeline":      false,
		"options.db.with_params":   true,
		"options.mail.full_log":    false,
		"options.logs.file":        "",
		"options.auth.show_name":   false,
	}
}
