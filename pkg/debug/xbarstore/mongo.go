package xbarstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

const (
	// DefaultMongoDatabase 默认数据库名。
	DefaultMongoDatabase = "xbar"
	// DefaultMongoCollection 默认集合名。
	DefaultMongoCollection = "snapshots"
)

// mongoDoc 一个快照一个文档，元数据单独成字段以便过滤与排序。
type mongoDoc struct {
	ID       string  `bson:"_id"`
	Datetime string  `bson:"datetime"`
	Utime    float64 `bson:"utime"`
	Method   string  `bson:"method"`
	URI      string  `bson:"uri"`
	IP       string  `bson:"ip"`
	Data     []byte  `bson:"data,omitempty"`
}

func (d mongoDoc) meta() xbar.Meta {
	return xbar.Meta{ID: d.ID, Datetime: d.Datetime, Utime: d.Utime, Method: d.Method, URI: d.URI, IP: d.IP}
}

// Mongo MongoDB 快照存储。
type Mongo struct {
	coll   *mongo.Collection
	client *mongo.Client // 非 nil 时 Close 断开连接
}

var _ Store = (*Mongo)(nil)

// NewMongo 使用已有集合创建存储，并确保 utime 索引存在。
func NewMongo(ctx context.Context, coll *mongo.Collection) (*Mongo, error) {
	if coll == nil {
		return nil, ErrNilClient
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "utime", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("xbarstore: create index: %w", err)
	}
	return &Mongo{coll: coll}, nil
}

func (m *Mongo) Save(ctx context.Context, s *xbar.Snapshot) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	meta := s.Meta()
	doc := mongoDoc{
		ID:       meta.ID,
		Datetime: meta.Datetime,
		Utime:    meta.Utime,
		Method:   meta.Method,
		URI:      meta.URI,
		IP:       meta.IP,
		Data:     data,
	}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": meta.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("xbarstore: save %q: %w", meta.ID, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*xbar.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("xbarstore: get %q: %w", id, err)
	}
	return xbar.ParseSnapshot(doc.Data)
}

func (m *Mongo) Find(ctx context.Context, f xbar.Filter) ([]xbar.Meta, error) {
	f = f.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "utime", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Max)).
		SetProjection(bson.M{"data": 0})

	cur, err := m.coll.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("xbarstore: find: %w", err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("xbarstore: find: %w", err)
	}
	metas := make([]xbar.Meta, len(docs))
	for i, d := range docs {
		metas[i] = d.meta()
	}
	return metas, nil
}

// mongoFilter Method 精确匹配忽略大小写，URI 与 IP 子串匹配。
func mongoFilter(f xbar.Filter) bson.M {
	q := bson.M{}
	if f.Method != "" {
		q["method"] = bson.Regex{Pattern: "^" + regexp.QuoteMeta(f.Method) + "$", Options: "i"}
	}
	if f.URI != "" {
		q["uri"] = bson.Regex{Pattern: regexp.QuoteMeta(f.URI)}
	}
	if f.IP != "" {
		q["ip"] = bson.Regex{Pattern: regexp.QuoteMeta(f.IP)}
	}
	return q
}

func (m *Mongo) Clear(ctx context.Context) error {
	if _, err := m.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("xbarstore: clear: %w", err)
	}
	return nil
}

func (m *Mongo) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{"utime": bson.M{"$lt": unixSeconds(before)}})
	if err != nil {
		return 0, fmt.Errorf("xbarstore: prune: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Collection 返回底层集合。
func (m *Mongo) Collection() *mongo.Collection { return m.coll }

func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
