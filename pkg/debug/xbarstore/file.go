package xbarstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

const (
	fileExt  = ".json"
	dirPerm  = 0o750
	filePerm = 0o640
)

// File 每个快照保存为 <dir>/<id>.json。
//
// 写入先落临时文件再 rename，读者不会看到写了一半的快照。
type File struct {
	dir string
}

var _ Store = (*File)(nil)

// NewFile 创建文件存储，目录不存在时创建。
func NewFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("xbarstore: create dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir 返回存储目录。
func (f *File) Dir() string { return f.dir }

func (f *File) path(id string) string {
	return filepath.Join(f.dir, id+fileExt)
}

func (f *File) Save(_ context.Context, s *xbar.Snapshot) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".xbar-*")
	if err != nil {
		return fmt.Errorf("xbarstore: create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xbarstore: write %q: %w", s.ID(), err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xbarstore: chmod %q: %w", s.ID(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("xbarstore: write %q: %w", s.ID(), err)
	}
	if err := os.Rename(tmp.Name(), f.path(s.ID())); err != nil {
		return fmt.Errorf("xbarstore: rename %q: %w", s.ID(), err)
	}
	return nil
}

func (f *File) Get(_ context.Context, id string) (*xbar.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("xbarstore: read %q: %w", id, err)
	}
	return xbar.ParseSnapshot(data)
}

// Find 读取每个文件的 __meta。损坏的文件被跳过。
func (f *File) Find(ctx context.Context, filter xbar.Filter) ([]xbar.Meta, error) {
	files, err := f.files()
	if err != nil {
		return nil, err
	}
	metas := make([]xbar.Meta, 0, len(files))
	for _, e := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			continue
		}
		meta, err := decodeMeta(data)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	newestFirst(metas)
	return page(metas, filter), nil
}

func (f *File) Clear(context.Context) error {
	files, err := f.files()
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range files {
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prune 按文件修改时间删除。
func (f *File) Prune(ctx context.Context, before time.Time) (int, error) {
	files, err := f.files()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err == nil {
			n++
		}
	}
	return n, nil
}

func (f *File) Close(context.Context) error { return nil }

// files 列出快照文件，忽略临时文件与子目录。
func (f *File) files() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("xbarstore: read dir: %w", err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), fileExt) && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e)
		}
	}
	return out, nil
}
