// Package xrender 负责把调试快照渲染为可以注入 HTML 的工具栏标记，
// 以及 AJAX 场景下的响应头编码。
//
// xrender 不依赖快照的具体类型：[Page] 中的 Data 只要求可被 encoding/json 序列化。
//
// # 标记
//
// [Renderer.Markup] 输出一段完整的片段（样式、脚本与数据集），
// 由调用方插入到 </body> 之前：
//
//	r := xrender.New(xrender.WithBaseURL("/_debugbar"))
//	markup, err := r.Markup(xrender.Page{ID: id, Data: snapshot})
//
// 重定向前暂存的快照通过 Page.Stacked 一并渲染。
//
// # 响应头
//
// [EncodeHeader] 把数据编码为 base64(JSON)，[ChunkHeader] 按长度上限切分，
// 对应 X-Debugbar-Data、X-Debugbar-Data-1 等多个响应头。
//
// # 静态资源
//
// 工具栏脚本与样式通过 embed 打包进二进制，由 [AssetHandler] 提供。
package xrender
