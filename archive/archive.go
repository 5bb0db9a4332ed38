// Package archive 实现样板代码归档流水线。
//
// BuildOrFetch 把一个已验证栈的 frontend/ + backend/ 模板目录打包成
// zip 流式写给调用方，并通过缓存门面做 lookaside：命中直接回放缓存
// 字节，未命中则边流式压缩边（在缓存可用时）累积到内存，流结束后
// 异步性地回填 `stack:<id>`，24 小时过期。缓存写失败只记日志，
// 绝不影响已经发出的响应。
package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/stacks"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// cacheTTL 归档缓存过期时间
const cacheTTL = 24 * time.Hour

// skipDirs 永不进入归档的目录名（依赖缓存与构建产物）
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// Builder 归档流水线
type Builder struct {
	catalog *stacks.Catalog
	cache   cache.Cache
	logger  clog.Logger

	builds  metrics.Counter
	seconds metrics.Histogram

	// walks 文件系统遍历次数，用于验证缓存命中路径不触碰磁盘
	walks atomic.Int64
}

// New 创建归档流水线。
// cache 未注入时流水线退化为纯现场构建，不做 lookaside 也不回填。
func New(catalog *stacks.Catalog, opts ...Option) (*Builder, error) {
	if catalog == nil {
		return nil, xerrors.New("archive: catalog is nil")
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	b := &Builder{
		catalog: catalog,
		cache:   opt.cache,
		logger:  opt.logger,
	}

	var err error
	if b.builds, err = opt.meter.Counter("archive_builds_total", "Total archive requests served"); err != nil {
		b.logger.Warn("failed to create builds counter", clog.Error(err))
	}
	if b.seconds, err = opt.meter.Histogram("archive_build_seconds", "Archive build duration in seconds"); err != nil {
		b.logger.Warn("failed to create build histogram", clog.Error(err))
	}

	return b, nil
}

// WalkCount 返回累计文件系统遍历次数（每次现场构建遍历两个根目录）
func (b *Builder) WalkCount() int64 {
	return b.walks.Load()
}

// BuildOrFetch 构建或回放归档并写入响应。
// 返回 *stacks.ValidationError（未知栈 404 / 开发中 501）或
// ERR_STREAMING 编码的流式错误（500），成功时为 nil。
func (b *Builder) BuildOrFetch(ctx context.Context, stackID string, w http.ResponseWriter) error {
	stack, verr := b.catalog.Resolve(stackID)
	if verr != nil {
		return verr
	}

	key := "stack:" + stack.ID
	cacheable := b.cache != nil && b.cache.IsAvailable()

	if cacheable {
		if v, ok := b.cache.Get(ctx, key); ok && v.Kind == cache.KindBinary {
			writeHeaders(w, stack.ID)
			if _, err := w.Write(v.Bytes()); err != nil {
				return streamingErr(err, stack.ID, "replay")
			}
			b.count(ctx, "cache")
			return nil
		}
	}

	start := time.Now()

	// 仅在缓存可用时 tee 到内存，避免白白占用内存
	var buf *bytes.Buffer
	var dst io.Writer = w
	if cacheable {
		buf = &bytes.Buffer{}
		dst = io.MultiWriter(w, buf)
	}

	writeHeaders(w, stack.ID)

	zw := zip.NewWriter(dst)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	b.walks.Add(1)
	if err := b.addRoot(zw, stack.FrontendRoot, "frontend"); err != nil {
		return streamingErr(err, stack.ID, "walk-frontend")
	}
	if err := b.addRoot(zw, stack.BackendRoot, "backend"); err != nil {
		return streamingErr(err, stack.ID, "walk-backend")
	}
	if err := zw.Close(); err != nil {
		return streamingErr(err, stack.ID, "finalize")
	}

	if b.seconds != nil {
		b.seconds.Record(ctx, time.Since(start).Seconds())
	}
	b.count(ctx, "build")

	// 响应已经完整发出，回填失败只记日志
	if buf != nil {
		if !b.cache.Set(ctx, key, cache.Binary(buf.Bytes()), cacheTTL) {
			b.logger.Warn("archive cache warm failed",
				clog.String("stack", stack.ID),
				clog.Int("bytes", buf.Len()))
		}
	}

	return nil
}

// addRoot 把一个模板根目录下的常规文件写入归档，路径保留相对结构
// 并冠以角色前缀。跳过名单目录与点号开头的条目整体不进入归档。
func (b *Builder) addRoot(zw *zip.Writer, root, role string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		header := &zip.FileHeader{
			Name:   role + "/" + filepath.ToSlash(rel),
			Method: zip.Deflate,
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(entry, f)
		return err
	})
}

// count 构建计数，source 区分现场构建与缓存回放
func (b *Builder) count(ctx context.Context, source string) {
	if b.builds != nil {
		b.builds.Inc(ctx, metrics.L("source", source))
	}
}

// writeHeaders 设置归档下载响应头
func writeHeaders(w http.ResponseWriter, stackID string) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", stackID))
}

// streamingErr 将文件系统/压缩错误包装为流式错误，带栈与阶段上下文
func streamingErr(err error, stackID, phase string) error {
	return xerrors.WithCode(
		xerrors.Wrapf(err, "archive: streaming %s failed at %s", stackID, phase),
		xerrors.CodeStreaming)
}

// IsStreamingFailure 判断错误是否为流式构建失败
func IsStreamingFailure(err error) bool {
	return xerrors.HasCode(err, xerrors.CodeStreaming)
}
