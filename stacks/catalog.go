package stacks

import (
	"fmt"
	"net/http"
	"path/filepath"
)

// Stack 解析后的栈：标识、拆分后的框架名与模板根目录。
// 模板按框架共享，FrontendRoot/BackendRoot 指向 `<root>/<framework>`。
type Stack struct {
	ID           string
	Frontend     string
	Backend      string
	FrontendRoot string
	BackendRoot  string
}

// Catalog 栈目录：把栈标识解析为模板位置与实现状态
type Catalog struct {
	root string
}

// NewCatalog 创建目录，root 为模板根目录（每个框架一个子目录）
func NewCatalog(root string) *Catalog {
	return &Catalog{root: root}
}

// Resolve 解析栈标识。
// 未知栈返回 404 类错误；已识别但模板尚未落地的组合返回 501 类
// 错误（区别于完全未知）。
func (c *Catalog) Resolve(stackID string) (*Stack, *ValidationError) {
	frontend, backend, ok := ParseID(stackID)
	if !ok {
		return nil, c.notFound(stackID)
	}

	compatible, knownFrontend := compatibility[frontend]
	if !knownFrontend || !knownBackend(backend) {
		return nil, c.notFound(stackID)
	}

	if developmentBackends[backend] {
		return nil, &ValidationError{
			StatusCode: http.StatusNotImplemented,
			Code:       CodeInDevelopment,
			Message:    fmt.Sprintf("stack %q is recognized but still in development", stackID),
			Details:    append([]string(nil), compatible...),
		}
	}

	for _, b := range compatible {
		if b == backend {
			return &Stack{
				ID:           stackID,
				Frontend:     frontend,
				Backend:      backend,
				FrontendRoot: filepath.Join(c.root, frontend),
				BackendRoot:  filepath.Join(c.root, backend),
			}, nil
		}
	}

	// 两端都受支持但组合不在兼容表里，对下载接口视同不存在
	return nil, c.notFound(stackID)
}

func (c *Catalog) notFound(stackID string) *ValidationError {
	return &ValidationError{
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("unknown stack %q", stackID),
		Details:    Frontends(),
	}
}
