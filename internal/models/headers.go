package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderConfig headers.yaml配置文件结构
type HeaderConfig struct {
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// CliHeaders 命令行传递的头部列表,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 将字符串列表解析为 http.Header
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 缺少冒号分隔符,应为 'Name: Value'", i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 头部名称不能为空", i+1)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// HeaderProvider 请求头部提供者
// 静态驱动用于每个请求,浏览器驱动用于页面额外头部
type HeaderProvider interface {
	// GetHeaders 返回按优先级合并后的头部 (默认 < 配置 < 命令行)
	GetHeaders() (http.Header, error)
}
