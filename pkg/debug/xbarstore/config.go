package xbarstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xbar/pkg/config/xconf"
)

// 驱动名，对应 storage.driver。
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// 未配置时的默认值。
const (
	DefaultPath       = "storage/debugbar"
	DefaultRedisAddr  = "127.0.0.1:6379"
	DefaultMongoURI   = "mongodb://127.0.0.1:27017"
	sqliteDefaultFile = "xbar.db"
)

type configOptions struct {
	redis redis.UniversalClient
	mongo *mongo.Client
}

// ConfigOption 为 FromConfig 注入外部客户端。
type ConfigOption func(*configOptions)

// WithRedisClient redis 驱动使用该客户端而不是按 storage.redis.* 新建。
func WithRedisClient(c redis.UniversalClient) ConfigOption {
	return func(o *configOptions) { o.redis = c }
}

// WithMongoClient mongo 驱动使用该客户端而不是按 storage.mongo.uri 新建。
func WithMongoClient(c *mongo.Client) ConfigOption {
	return func(o *configOptions) { o.mongo = c }
}

// FromConfig 按 storage.* 构建存储。storage.enabled 为 false 时返回 nil, nil。
//
// 读取的键：
//
//	storage.enabled        默认 true
//	storage.driver         file | memory | sqlite | redis | mongo，默认 file
//	storage.path           file 目录；sqlite 默认在其下创建 xbar.db
//	storage.sqlite.path    sqlite 数据库文件
//	storage.size           memory 容量
//	storage.ttl            memory 过期时间
//	storage.redis.addr     / password / db / prefix
//	storage.mongo.uri      / database / collection
//	storage.resilient      是否加重试与熔断，redis 与 mongo 默认 true
func FromConfig(ctx context.Context, cfg xconf.Source, opts ...ConfigOption) (Store, error) {
	if cfg == nil || !cfg.Bool("storage.enabled", true) {
		return nil, nil
	}
	o := &configOptions{}
	for _, opt := range opts {
		opt(o)
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.String("storage.driver", DriverFile)))
	store, err := open(ctx, cfg, driver, o)
	if err != nil {
		return nil, err
	}

	remote := driver == DriverRedis || driver == DriverMongo
	if cfg.Bool("storage.resilient", remote) {
		return NewResilient(store, WithBreaker("xbarstore."+driver, 0, 0)), nil
	}
	return store, nil
}

func open(ctx context.Context, cfg xconf.Source, driver string, o *configOptions) (Store, error) {
	switch driver {
	case DriverFile:
		return NewFile(cfg.String("storage.path", DefaultPath))

	case DriverMemory:
		return NewMemory(cfg.Int("storage.size", DefaultMemorySize), cfg.Duration("storage.ttl", 0)), nil

	case DriverSQLite:
		path := cfg.String("storage.sqlite.path", "")
		if path == "" {
			path = filepath.Join(cfg.String("storage.path", DefaultPath), sqliteDefaultFile)
		}
		return NewSQLite(ctx, path)

	case DriverRedis:
		return openRedis(ctx, cfg, o.redis)

	case DriverMongo:
		return openMongo(ctx, cfg, o.mongo)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func openRedis(ctx context.Context, cfg xconf.Source, client redis.UniversalClient) (Store, error) {
	opts := []RedisOption{WithRedisPrefix(cfg.String("storage.redis.prefix", DefaultRedisPrefix))}
	if client == nil {
		c := redis.NewClient(&redis.Options{
			Addr:     cfg.String("storage.redis.addr", DefaultRedisAddr),
			Password: cfg.String("storage.redis.password", ""),
			DB:       cfg.Int("storage.redis.db", 0),
		})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("xbarstore: connect redis: %w", err)
		}
		client = c
		opts = append(opts, withOwnedClient())
	}
	return NewRedis(client, opts...)
}

func openMongo(ctx context.Context, cfg xconf.Source, client *mongo.Client) (Store, error) {
	owned := client == nil
	if owned {
		c, err := mongo.Connect(options.Client().ApplyURI(cfg.String("storage.mongo.uri", DefaultMongoURI)))
		if err != nil {
			return nil, fmt.Errorf("xbarstore: connect mongo: %w", err)
		}
		client = c
	}
	coll := client.
		Database(cfg.String("storage.mongo.database", DefaultMongoDatabase)).
		Collection(cfg.String("storage.mongo.collection", DefaultMongoCollection))
	m, err := NewMongo(ctx, coll)
	if err != nil {
		if owned {
			_ = client.Disconnect(ctx)
		}
		return nil, err
	}
	if owned {
		m.client = client
	}
	return m, nil
}

// PruneJobFromConfig 按 storage.prune（cron 表达式）与 storage.ttl 创建清理任务。
// storage.prune 为空或 "off" 时返回 nil, nil。Redis 存储默认带上 redsync 清理锁，
// storage.prune_lock=false 关闭。
func PruneJobFromConfig(store Pruner, cfg xconf.Source, opts ...PruneOption) (*PruneJob, error) {
	if store == nil || cfg == nil {
		return nil, nil
	}
	schedule := strings.TrimSpace(cfg.String("storage.prune", ""))
	if schedule == "" || strings.EqualFold(schedule, "off") {
		return nil, nil
	}
	if cfg.Bool("storage.prune_lock", true) {
		if lock, ok := pruneLockFor(store); ok {
			opts = append([]PruneOption{WithPruneLock(lock)}, opts...)
		}
	}
	return NewPruneJob(store, schedule, cfg.Duration("storage.ttl", DefaultPruneMaxAge), opts...)
}
