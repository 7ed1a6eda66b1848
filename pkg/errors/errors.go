package errors

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
// 与 gorm.ErrRecordNotFound 为同一值，Firestore 存储后端同样返回该错误
var ErrNotFound = gorm.ErrRecordNotFound

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
