// Package resource 负责把客户端请求的文件名校验并映射为源站 raw URL。
// 校验发生在缓存引擎之前，引擎收到的 identifier 一定是合法的绝对 URL。
package resource

import (
	"fmt"
	"path"
	"strings"
)

// NameError 表示文件名未通过校验，携带可直接返回给客户端的原因。
type NameError struct {
	Name   string
	Reason string
}

func (e NameError) Error() string {
	return fmt.Sprintf("invalid resource name %q: %s", e.Name, e.Reason)
}

// ValidateName 检查文件名是否可以直接透传：非空、无路径分隔符、
// 无隐藏文件前缀、扩展名在白名单内。extensions 以带点小写形式传入。
func ValidateName(name string, extensions []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NameError{Name: name, Reason: "empty"}
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return NameError{Name: name, Reason: "path separators not allowed"}
	}
	if strings.HasPrefix(name, ".") {
		return NameError{Name: name, Reason: "hidden files not allowed"}
	}

	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return NameError{Name: name, Reason: "missing extension"}
	}
	for _, allowed := range extensions {
		if ext == allowed {
			return nil
		}
	}
	return NameError{Name: name, Reason: "extension not allowed"}
}

// RawURL 将校验过的文件名拼接到 raw 基础 URL 之后，作为缓存引擎的 identifier。
func RawURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimSpace(name)
}
