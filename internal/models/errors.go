package models

import (
	"fmt"
)

// NavigationError 导航错误 (超时、传输失败、非成功状态码)
// 可重试,超过上限后放弃当前页
type NavigationError struct {
	URL    string
	Status int // HTTP状态码,未知时为0
	Cause  error
}

// Error 实现error接口
func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("导航失败 [%s] 状态码=%d: %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("导航失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// ExtractionError 单条记录提取错误
// 仅影响该条记录,不会中断批次
type ExtractionError struct {
	Index int
	Cause error
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("第%d个元素提取失败: %v", e.Index, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ValidationError 头部验证错误
type ValidationError struct {
	// Field 出错的字段 ("name" 或 "value")
	Field string

	HeaderName string
	Reason     string

	// Suggestion 修复建议 (可选)
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置错误
// FilePath用于配置文件,Site用于单个站点配置
type ConfigError struct {
	FilePath string
	Site     string
	Cause    error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	switch {
	case e.Site != "":
		return fmt.Sprintf("站点配置错误 [%s]: %v", e.Site, e.Cause)
	case e.FilePath != "":
		return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
	default:
		return fmt.Sprintf("配置错误: %v", e.Cause)
	}
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
