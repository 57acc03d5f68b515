package utils

import (
	"net/http"
	"sort"
	"strings"
)

// SensitiveKeywords 敏感头部名称关键字
var SensitiveKeywords = []string{
	"authorization",
	"cookie",
	"token",
	"key",
	"secret",
	"password",
	"credential",
}

// HeaderRedactor 头部脱敏器,用于日志输出
type HeaderRedactor struct {
	keywords []string
}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{keywords: SensitiveKeywords}
}

// IsSensitiveHeader 根据名称关键字判断是否敏感
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range hr.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	switch {
	case !hr.IsSensitiveHeader(name):
		return value
	case strings.HasPrefix(value, "Bearer "):
		return "Bearer ***"
	case len(value) > 8:
		return value[:4] + "***" + value[len(value)-4:]
	default:
		return "***"
	}
}

// RedactToString 返回按名称排序的脱敏字符串,格式 "A: 1, B: 2"
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+hr.RedactHeaderValue(name, headers[name][0]))
	}
	return strings.Join(parts, ", ")
}
