package errors

import (
	"context"
	"errors"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStockInsufficient 备件库存不足：扣减会导致数量为负
var ErrStockInsufficient = errors.New("备件库存不足")

// ErrStoreTimeout 存储操作超时：由调用方决定是否重试，服务内部不做循环重试
var ErrStoreTimeout = errors.New("存储操作超时，请稍后重试")

// IsStoreTimeout 判断存储调用错误是否属于超时一类。
// gorm 会把请求上下文的超时/取消原样透传，这里连同显式的
// ErrStoreTimeout 一起归并，供 Handler 层统一映射为 504。
func IsStoreTimeout(err error) bool {
	return errors.Is(err, ErrStoreTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
