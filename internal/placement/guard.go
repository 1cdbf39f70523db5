package placement

import (
	"errors"
	"time"
)

var (
	// ErrAttemptLimitReached 次数用尽，拒绝开始新的测评
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	// ErrAttemptExpired 超时，调用方需清空会话并从最低等级重新开始
	ErrAttemptExpired = errors.New("attempt time limit exceeded")
)

// CheckAttempts limit <= 0 表示不限次数
func CheckAttempts(completed int64, limit int) error {
	if limit > 0 && completed >= int64(limit) {
		return ErrAttemptLimitReached
	}
	return nil
}

// CheckTime 仅在每轮开始或提交时检查，恰好等于时限不算超时
func CheckTime(start, now time.Time, limitSeconds int) error {
	if limitSeconds <= 0 || start.IsZero() {
		return nil
	}
	if now.Sub(start) > time.Duration(limitSeconds)*time.Second {
		return ErrAttemptExpired
	}
	return nil
}

// Remaining 剩余秒数，不限时返回 -1
func Remaining(start, now time.Time, limitSeconds int) int {
	if limitSeconds <= 0 {
		return -1
	}
	left := limitSeconds - elapsedSeconds(start, now)
	if left < 0 {
		return 0
	}
	return left
}
