// Package stacks 维护前后端框架的兼容矩阵与栈目录。
//
// 包内只有纯函数和静态表：Validate 校验前后端组合是否受支持，
// Catalog 将栈标识（`<frontend>-<backend>`）解析为模板目录与
// 实现状态，供归档流水线与 HTTP 层消费。
package stacks

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError 结构化校验错误。
// StatusCode 让 HTTP 层的状态码映射完全机械化。
type ValidationError struct {
	StatusCode int      `json:"statusCode"`
	Code       string   `json:"error"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// 校验错误码
const (
	CodeInvalidFrontend = "invalid_frontend"
	CodeInvalidBackend  = "invalid_backend"
	CodeIncompatible    = "incompatible_stack"
	CodeNotFound        = "stack_not_found"
	CodeInDevelopment   = "stack_in_development"
)

// compatibility 前端 -> 兼容后端的静态表。
// 表里只出现已经落地模板的组合。
var compatibility = map[string][]string{
	"react":   {"express", "fastify", "nest"},
	"vue":     {"express", "fastify"},
	"angular": {"nest", "express"},
	"svelte":  {"express"},
}

// developmentBackends 已被识别、模板尚未落地的后端
var developmentBackends = map[string]bool{
	"django": true,
	"flask":  true,
	"rails":  true,
}

// Frontends 返回受支持的前端列表（字典序）
func Frontends() []string {
	out := make([]string, 0, len(compatibility))
	for f := range compatibility {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Backends 返回受支持的后端列表（字典序），含开发中的条目
func Backends() []string {
	seen := map[string]bool{}
	for _, bs := range compatibility {
		for _, b := range bs {
			seen[b] = true
		}
	}
	for b := range developmentBackends {
		seen[b] = true
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// knownBackend 判断后端是否在受支持集合中
func knownBackend(backend string) bool {
	if developmentBackends[backend] {
		return true
	}
	for _, bs := range compatibility {
		for _, b := range bs {
			if b == backend {
				return true
			}
		}
	}
	return false
}

// Validate 校验前后端组合。
// 合法时返回 nil；依次检查前端、后端、兼容性，首个失败即返回，
// 错误中附带合法的备选项。
func Validate(frontend, backend string) *ValidationError {
	compatible, ok := compatibility[frontend]
	if !ok {
		return &ValidationError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidFrontend,
			Message:    fmt.Sprintf("unsupported frontend %q", frontend),
			Details:    Frontends(),
		}
	}

	if !knownBackend(backend) {
		return &ValidationError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidBackend,
			Message:    fmt.Sprintf("unsupported backend %q", backend),
			Details:    Backends(),
		}
	}

	for _, b := range compatible {
		if b == backend {
			return nil
		}
	}
	return &ValidationError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeIncompatible,
		Message:    fmt.Sprintf("backend %q is not compatible with frontend %q", backend, frontend),
		Details:    append([]string(nil), compatible...),
	}
}

// ParseID 拆解 `<frontend>-<backend>` 形式的栈标识
func ParseID(stackID string) (frontend, backend string, ok bool) {
	frontend, backend, ok = strings.Cut(stackID, "-")
	if !ok || frontend == "" || backend == "" {
		return "", "", false
	}
	return frontend, backend, true
}
