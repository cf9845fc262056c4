// Package xid 生成请求级唯一 ID。
//
// 默认基于 Sonyflake v2（39 位时间 + 8 位序列 + 16 位机器 ID），
// 输出为 base36 字符串，长度短且按时间大致有序，适合作为快照 ID 与存储键。
//
// 当 Sonyflake 无法初始化（例如容器内找不到私有 IP）时，
// 包级函数 [RequestID] 回退到 UUID v4，保证调用方始终拿到非空 ID。
//
//	id := xid.RequestID()
//
// 需要依赖注入或测试隔离时，使用 [NewGenerator] 创建独立实例。
package xid
