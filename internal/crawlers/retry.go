package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

var (
	ErrMaxRetriesReached = errors.New("已达最大重试次数")
)

const (
	// DefaultMaxRetries 默认最大尝试次数
	DefaultMaxRetries = 3
)

// Retrier 有界重试控制器
// 失败后在同一位置重试,退避时间随尝试次数线性增长
type Retrier struct {
	MaxRetries int
	Backoff    time.Duration

	// OnRetry 每次失败且仍会重试时调用
	OnRetry func(attempt int, err error)
}

// NewRetrier 创建重试控制器
func NewRetrier(maxRetries int, backoff time.Duration) *Retrier {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Retrier{MaxRetries: maxRetries, Backoff: backoff}
}

// Do 执行操作,最多尝试MaxRetries次
// 操作中的panic转换为错误;context结束时不再重试;
// 重试耗尽返回包装了ErrMaxRetriesReached和最后一次错误的错误
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		lastErr = safeCall(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s 已中止: %w", op, lastErr)
		}
		if attempt == r.MaxRetries {
			break
		}

		utils.Warnf("%s 失败(尝试%d/%d): %v", op, attempt, r.MaxRetries, lastErr)
		if r.OnRetry != nil {
			r.OnRetry(attempt, lastErr)
		}
		if err := utils.SleepContext(ctx, r.Backoff*time.Duration(attempt)); err != nil {
			return fmt.Errorf("%s 重试等待被中止: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrMaxRetriesReached, lastErr)
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("操作panic: %v", r)
		}
	}()
	return fn(ctx)
}
