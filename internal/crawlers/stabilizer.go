package crawlers

import (
	"context"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

const (
	// DefaultStableThreshold 默认连续不变采样次数
	DefaultStableThreshold = 3

	maxHistory = 64
)

// StableReason 判定稳定的原因
type StableReason string

const (
	ReasonGrowing  StableReason = ""          // 仍在增长
	ReasonNoChange StableReason = "no_change" // 连续采样不变达到阈值
	ReasonTimeout  StableReason = "timeout"   // 超时,按稳定处理
)

// StabilizerConfig 稳定性检测配置
type StabilizerConfig struct {
	Interval  time.Duration // 采样间隔
	Threshold int           // 连续不变次数阈值
	Timeout   time.Duration // 绝对超时,0表示不限制
}

// Verdict 稳定性判定结果
type Verdict struct {
	Stable    bool
	Reason    StableReason
	Samples   int // 已采样次数
	Unchanged int // 当前连续不变次数
	Last      float64
}

// Stabilizer 稳定性检测器
// 统计与上一次采样相等的连续次数,达到阈值或超过绝对超时即判定稳定
type Stabilizer struct {
	cfg StabilizerConfig
	now func() time.Time

	history   []float64
	samples   int
	unchanged int
	startedAt time.Time
}

// NewStabilizer 创建稳定性检测器
func NewStabilizer(cfg StabilizerConfig) *Stabilizer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultStableThreshold
	}
	return &Stabilizer{
		cfg: cfg,
		now: time.Now,
	}
}

// Config 返回生效的配置
func (s *Stabilizer) Config() StabilizerConfig {
	return s.cfg
}

// Observe 记录一次采样并返回当前判定
func (s *Stabilizer) Observe(value float64) Verdict {
	if s.startedAt.IsZero() {
		s.startedAt = s.now()
	}

	if n := len(s.history); n > 0 && s.history[n-1] == value {
		s.unchanged++
	} else {
		s.unchanged = 0
	}
	s.samples++
	s.history = append(s.history, value)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}

	v := Verdict{Samples: s.samples, Unchanged: s.unchanged, Last: value}
	switch {
	case s.unchanged >= s.cfg.Threshold:
		v.Stable, v.Reason = true, ReasonNoChange
	case s.cfg.Timeout > 0 && s.now().Sub(s.startedAt) >= s.cfg.Timeout:
		v.Stable, v.Reason = true, ReasonTimeout
	}
	return v
}

// History 返回最近的采样记录
func (s *Stabilizer) History() []float64 {
	out := make([]float64, len(s.history))
	copy(out, s.history)
	return out
}

// Await 按固定间隔采样,直到判定稳定
// 超时或context结束时按稳定返回;采样函数出错时返回该错误
func (s *Stabilizer) Await(ctx context.Context, sample func(context.Context) (float64, error)) (Verdict, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	for {
		value, err := sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.timedOut(), nil
			}
			return Verdict{Samples: s.samples, Unchanged: s.unchanged}, err
		}

		if v := s.Observe(value); v.Stable {
			return v, nil
		}

		if err := utils.SleepContext(ctx, s.cfg.Interval); err != nil {
			return s.timedOut(), nil
		}
	}
}

func (s *Stabilizer) timedOut() Verdict {
	v := Verdict{Stable: true, Reason: ReasonTimeout, Samples: s.samples, Unchanged: s.unchanged}
	if n := len(s.history); n > 0 {
		v.Last = s.history[n-1]
	}
	return v
}
