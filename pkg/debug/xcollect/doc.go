// Package xcollect 定义调试栏的采集器接口以及内置采集器。
//
// # 采集器
//
// 采集器（[Collector]）是只负责一个关注点的被动累加器：
// 请求执行期间由钩子或业务代码向其写入数据，
// 请求结束时 Collect 返回一个可 JSON 序列化的值，作为快照中以 Name 为键的一项。
//
// 可选能力通过接口断言获取：
//
//   - [Aggregator]：把其它消息类采集器的输出合并到自身（日志并入 messages 面板）
//   - [MessageSource]：以消息列表的形式暴露数据，可被 Aggregator 合并
//
// # 内置采集器
//
//   - time：时间线与测量（[TimeCollector]）
//   - messages / log / events / maillog：消息类面板（[MessagesCollector]）
//   - exceptions：错误及其错误链（[ExceptionsCollector]）
//   - db：SQL 语句（[QueryCollector]）
//   - memory、runtime、files、app：进程与构建信息
//   - request：请求与响应数据
//   - views、route、mail、auth、logs、trace、config
//
// # 并发
//
// 采集器的生命周期是单个请求，但应用可能在请求派生的 goroutine 中写日志，
// 因此所有内置采集器的写入方法都是并发安全的。
// Collect 返回的是数据副本，之后的写入不会影响已生成的快照。
package xcollect
