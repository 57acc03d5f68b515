package utils

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// SleepContext 等待指定时长,context结束时提前返回其错误
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileName 将任意名称转换为可用作文件名的字符串
func SafeFileName(name string) string {
	cleaned := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}
