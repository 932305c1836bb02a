// Package retry 提供带退避的重试.
//
// 用于建立到接入端的连接等可恢复的启动操作:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
//	    return client.Ping(ctx).Err()
//	})
package retry

import (
	"context"
	"fmt"
	"time"
)

// BackoffFunc 根据尝试次数（从 0 开始）计算等待时间.
type BackoffFunc func(attempt int, delay time.Duration) time.Duration

// Config 重试配置.
type Config struct {
	// MaxAttempts 最大尝试次数，包含首次.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// Delay 基础等待时间.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// MaxDelay 单次等待上限，0 表示不限制.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// Backoff 退避策略，默认指数退避.
	Backoff BackoffFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Backoff:     ExponentialBackoff,
	}
}

// FixedBackoff 固定等待.
func FixedBackoff(_ int, delay time.Duration) time.Duration {
	return delay
}

// ExponentialBackoff 指数退避，每次翻倍.
func ExponentialBackoff(attempt int, delay time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	return delay << attempt
}

// wait 计算第 attempt 次失败后的等待时间.
func (c *Config) wait(attempt int) time.Duration {
	backoff := c.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	d := backoff(attempt, c.Delay)
	if c.MaxDelay > 0 && (d > c.MaxDelay || d < 0) {
		d = c.MaxDelay
	}
	return d
}

// Do 执行 fn 直到成功、次数耗尽或 ctx 取消.
//
// 次数耗尽时返回同时包装 ErrMaxAttempts 和最后一次错误的错误.
func Do(ctx context.Context, cfg *Config, fn func(ctx context.Context) error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt < attempts-1 {
			timer := time.NewTimer(cfg.wait(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("%w: %w", ErrMaxAttempts, err)
}
