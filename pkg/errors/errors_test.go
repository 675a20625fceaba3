package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestIsStoreTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"显式超时哨兵", ErrStoreTimeout, true},
		{"context 超时", context.DeadlineExceeded, true},
		{"context 取消", context.Canceled, true},
		{"包装后的 context 超时", fmt.Errorf("查询任务: %w", context.DeadlineExceeded), true},
		{"乐观锁冲突", ErrOptimisticLock, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStoreTimeout(tt.err); got != tt.want {
				t.Errorf("IsStoreTimeout(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
