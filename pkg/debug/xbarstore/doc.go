// Package xbarstore 提供调试栏快照的持久化实现。
//
// 所有实现都满足 [Store]，即 [xbar.Storage]、[xbar.Finder]、[xbar.Clearer]
// 再加上按时间清理的 [Pruner]：
//
//   - [Memory]：进程内 LRU，可选 TTL
//   - [File]：每个快照一个 JSON 文件
//   - [SQLite]：modernc.org/sqlite，表结构由内嵌迁移创建
//   - [Redis]：哈希保存数据，有序集合按时间索引
//   - [Mongo]：一个快照一个文档
//
// [NewResilient] 为任意 Store 加上重试与熔断，[NewPruner] 按 cron 表达式定期清理。
// [FromConfig] 依据 storage.* 配置构建实现：
//
//	store, err := xbarstore.FromConfig(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if store != nil {
//	    defer store.Close(ctx)
//	    opts = append(opts, xbar.WithStorage(store))
//	}
package xbarstore
