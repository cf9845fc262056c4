package xbarstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // 注册 "sqlite" 驱动

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite 基于 modernc.org/sqlite 的快照存储。
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite 打开（必要时创建）path 处的数据库并执行迁移。
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("xbarstore: create dir: %w", err)
		}
	}
	dsn := sqliteDSN(path)

	// migrate.Close 会关闭传入的连接，迁移单独使用一个连接。
	if err := migrateSQLite(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("xbarstore: open sqlite: %w", err)
	}
	// SQLite 只有一个写者
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("xbarstore: ping sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func migrateSQLite(dsn string) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("xbarstore: open sqlite: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("xbarstore: migration source: %w", err)
	}
	driver, err := msqlite.WithInstance(db, &msqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("xbarstore: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("xbarstore: migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("xbarstore: migrate: %w", err)
	}
	return nil
}

const sqliteUpsert = `INSERT INTO xbar_snapshots (id, datetime, utime, method, uri, ip, data)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    datetime = excluded.datetime,
    utime    = excluded.utime,
    method   = excluded.method,
    uri      = excluded.uri,
    ip       = excluded.ip,
    data     = excluded.data`

func (s *SQLite) Save(ctx context.Context, snap *xbar.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	m := snap.Meta()
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, m.ID, m.Datetime, m.Utime, m.Method, m.URI, m.IP, data); err != nil {
		return fmt.Errorf("xbarstore: save %q: %w", m.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*xbar.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM xbar_snapshots WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("xbarstore: get %q: %w", id, err)
	}
	return xbar.ParseSnapshot(data)
}

// Find 在 SQL 中完成过滤与分页，语义与 xbar.Filter.Match 一致。
func (s *SQLite) Find(ctx context.Context, f xbar.Filter) ([]xbar.Meta, error) {
	f = f.Normalize()
	var (
		where []string
		args  []any
	)
	if f.Method != "" {
		where = append(where, "method = ? COLLATE NOCASE")
		args = append(args, f.Method)
	}
	if f.URI != "" {
		where = append(where, "instr(uri, ?) > 0")
		args = append(args, f.URI)
	}
	if f.IP != "" {
		where = append(where, "instr(ip, ?) > 0")
		args = append(args, f.IP)
	}

	var q strings.Builder
	q.WriteString(`SELECT id, datetime, utime, method, uri, ip FROM xbar_snapshots`)
	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	q.WriteString(` ORDER BY utime DESC, id DESC LIMIT ? OFFSET ?`)
	args = append(args, f.Max, f.Offset)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("xbarstore: find: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metas := make([]xbar.Meta, 0, f.Max)
	for rows.Next() {
		var m xbar.Meta
		if err := rows.Scan(&m.ID, &m.Datetime, &m.Utime, &m.Method, &m.URI, &m.IP); err != nil {
			return nil, fmt.Errorf("xbarstore: find: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("xbarstore: find: %w", err)
	}
	return metas, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM xbar_snapshots`); err != nil {
		return fmt.Errorf("xbarstore: clear: %w", err)
	}
	return nil
}

func (s *SQLite) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM xbar_snapshots WHERE utime < ?`, unixSeconds(before))
	if err != nil {
		return 0, fmt.Errorf("xbarstore: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("xbarstore: prune: %w", err)
	}
	return int(n), nil
}

// DB 返回底层连接。
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}
