package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

//BuildToken 单个瓦片构建的锁凭据
type BuildToken struct {
	key  TileKey
	done chan struct{}
}

//Cache 瓦片缓存。每个键的状态机：ABSENT → BUILDING → PRESENT（成功）
//或 BUILDING → ABSENT（失败回滚）。
type Cache interface {
	// Read is non-blocking. A build in progress reads as a miss, never as a
	// partial value.
	Read(ctx context.Context, key TileKey) ([]byte, bool, error)
	// BeginBuild returns false if another builder holds the key. At most one
	// build runs per key at any time.
	BeginBuild(key TileKey) (*BuildToken, bool)
	// WaitBuild blocks until the current build for key commits or aborts.
	// Returns immediately when no build is running. A canceled waiter stops
	// waiting without touching the build other waiters depend on.
	WaitBuild(ctx context.Context, key TileKey, timeout time.Duration) error
	// Commit atomically publishes the tile and releases the key lock.
	Commit(ctx context.Context, token *BuildToken, body []byte) error
	// Abort releases the key lock without publishing anything.
	Abort(token *BuildToken)
}

// buildLocks tracks which keys are being built. Shared by all backends.
type buildLocks struct {
	mu       sync.Mutex
	building map[TileKey]chan struct{}
}

func newBuildLocks() *buildLocks {
	return &buildLocks{building: map[TileKey]chan struct{}{}}
}

func (l *buildLocks) acquire(key TileKey) (chan struct{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.building[key]; ok {
		return nil, false
	}
	done := make(chan struct{})
	l.building[key] = done
	return done, true
}

// release frees the key only for the build that holds it. A stale release
// (say an Abort following a failed Commit that already freed the key) must
// not touch a lock a newer build has since acquired.
func (l *buildLocks) release(key TileKey, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.building[key]; ok && cur == done {
		close(cur)
		delete(l.building, key)
	}
}

func (l *buildLocks) wait(ctx context.Context, key TileKey, timeout time.Duration) error {
	l.mu.Lock()
	done, ok := l.building[key]
	l.mu.Unlock()
	if !ok {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBuildTimeout
	}
}

//DiskCache 文件系统缓存，layer/z/x/y.format 目录布局
type DiskCache struct {
	root    string
	mode    os.FileMode
	gzipFmt map[string]bool
	locks   *buildLocks
}

//NewDiskCache 创建文件缓存
func NewDiskCache(root string, mode os.FileMode, gzipFormats []string) *DiskCache {
	gz := make(map[string]bool, len(gzipFormats))
	for _, f := range gzipFormats {
		gz[f] = true
	}
	return &DiskCache{
		root:    root,
		mode:    mode,
		gzipFmt: gz,
		locks:   newBuildLocks(),
	}
}

// dirMode derives directory permissions from the configured file mode: same
// ownership bits, with execute added wherever read is granted, so a
// restrictive filemode is not undermined by loose directories.
func dirMode(mode os.FileMode) os.FileMode {
	return mode | ((mode & 0444) >> 2) | 0700
}

func (c *DiskCache) path(key TileKey) string {
	p := filepath.Join(c.root, key.Path())
	if c.gzipFmt[key.Format] {
		p += ".gz"
	}
	return p
}

//Read 读取缓存瓦片
func (c *DiskCache) Read(ctx context.Context, key TileKey) ([]byte, bool, error) {
	body, err := os.ReadFile(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if c.gzipFmt[key.Format] {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer zr.Close()
		if body, err = io.ReadAll(zr); err != nil {
			return nil, false, err
		}
	}
	return body, true, nil
}

//BeginBuild 获取构建锁
func (c *DiskCache) BeginBuild(key TileKey) (*BuildToken, bool) {
	done, ok := c.locks.acquire(key)
	if !ok {
		return nil, false
	}
	return &BuildToken{key: key, done: done}, true
}

//WaitBuild 等待其他构建完成
func (c *DiskCache) WaitBuild(ctx context.Context, key TileKey, timeout time.Duration) error {
	return c.locks.wait(ctx, key, timeout)
}

//Commit 写临时文件后原子重命名，读者永远看不到半成品
func (c *DiskCache) Commit(ctx context.Context, token *BuildToken, body []byte) error {
	defer c.locks.release(token.key, token.done)

	fullpath := c.path(token.key)
	dir := filepath.Dir(fullpath)
	if err := os.MkdirAll(dir, dirMode(c.mode)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if c.gzipFmt[token.key.Format] {
		zw := gzip.NewWriter(tmp)
		if _, err = zw.Write(body); err == nil {
			err = zw.Close()
		}
	} else {
		_, err = tmp.Write(body)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), c.mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fullpath)
}

//Abort 构建失败，释放锁，不留下任何缓存条目
func (c *DiskCache) Abort(token *BuildToken) {
	c.locks.release(token.key, token.done)
}

//SQLiteCache mbtiles 风格的 sqlite 缓存，按 layer+format 扩展键
type SQLiteCache struct {
	db      *sql.DB
	gzipFmt map[string]bool
	locks   *buildLocks
}

//NewSQLiteCache 创建 sqlite 缓存库
func NewSQLiteCache(path string, gzipFormats []string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err = optimizeConnection(db); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`create table if not exists tiles (
		layer text, format text,
		zoom_level integer, tile_column integer, tile_row integer,
		tile_data blob);`)
	if err == nil {
		_, err = db.Exec("create unique index if not exists tile_index on tiles(layer, format, zoom_level, tile_column, tile_row);")
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	gz := make(map[string]bool, len(gzipFormats))
	for _, f := range gzipFormats {
		gz[f] = true
	}
	return &SQLiteCache{db: db, gzipFmt: gz, locks: newBuildLocks()}, nil
}

//Read 读取缓存瓦片
func (c *SQLiteCache) Read(ctx context.Context, key TileKey) ([]byte, bool, error) {
	t := key.Tile()
	var body []byte
	err := c.db.QueryRowContext(ctx,
		"select tile_data from tiles where layer = ? and format = ? and zoom_level = ? and tile_column = ? and tile_row = ?",
		key.Layer, key.Format, t.Z, t.X, flipY(t)).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if c.gzipFmt[key.Format] {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer zr.Close()
		if body, err = io.ReadAll(zr); err != nil {
			return nil, false, err
		}
	}
	return body, true, nil
}

//BeginBuild 获取构建锁
func (c *SQLiteCache) BeginBuild(key TileKey) (*BuildToken, bool) {
	done, ok := c.locks.acquire(key)
	if !ok {
		return nil, false
	}
	return &BuildToken{key: key, done: done}, true
}

//WaitBuild 等待其他构建完成
func (c *SQLiteCache) WaitBuild(ctx context.Context, key TileKey, timeout time.Duration) error {
	return c.locks.wait(ctx, key, timeout)
}

//Commit 单条 insert or replace，整行可见或不可见
func (c *SQLiteCache) Commit(ctx context.Context, token *BuildToken, body []byte) error {
	defer c.locks.release(token.key, token.done)

	if c.gzipFmt[token.key.Format] {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		body = buf.Bytes()
	}

	t := token.key.Tile()
	_, err := c.db.ExecContext(ctx,
		"insert or replace into tiles (layer, format, zoom_level, tile_column, tile_row, tile_data) values (?, ?, ?, ?, ?, ?);",
		token.key.Layer, token.key.Format, t.Z, t.X, flipY(t), body)
	return err
}

//Abort 释放锁
func (c *SQLiteCache) Abort(token *BuildToken) {
	c.locks.release(token.key, token.done)
}

//Close 关闭缓存库
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

//RedisCache redis 缓存后端
type RedisCache struct {
	rdb   *redis.Client
	locks *buildLocks
}

//NewRedisCache 连接 redis 缓存
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		locks: newBuildLocks(),
	}
}

//Read 读取缓存瓦片
func (c *RedisCache) Read(ctx context.Context, key TileKey) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

//BeginBuild 获取构建锁
func (c *RedisCache) BeginBuild(key TileKey) (*BuildToken, bool) {
	done, ok := c.locks.acquire(key)
	if !ok {
		return nil, false
	}
	return &BuildToken{key: key, done: done}, true
}

//WaitBuild 等待其他构建完成
func (c *RedisCache) WaitBuild(ctx context.Context, key TileKey, timeout time.Duration) error {
	return c.locks.wait(ctx, key, timeout)
}

//Commit 单条 SET，redis 写入本身是原子的
func (c *RedisCache) Commit(ctx context.Context, token *BuildToken, body []byte) error {
	defer c.locks.release(token.key, token.done)
	// no expiry: eviction is an external policy
	return c.rdb.Set(ctx, token.key.String(), body, 0).Err()
}

//Abort 释放锁
func (c *RedisCache) Abort(token *BuildToken) {
	c.locks.release(token.key, token.done)
}

var _ Cache = (*DiskCache)(nil)
var _ Cache = (*SQLiteCache)(nil)
var _ Cache = (*RedisCache)(nil)

func buildCacheError(backend string) error {
	return ConfigError{Reason: fmt.Sprintf("unknown cache backend (%s)", backend)}
}
