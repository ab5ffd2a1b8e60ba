// Package pool provides goroutine pools backed by ants.
package pool

import "errors"

// 池相关错误
var (
	// ErrPoolClosed 池已释放，不再接受任务
	ErrPoolClosed = errors.New("pool: 池已关闭")
	// ErrPoolNotFound 管理器中没有该类型的池
	ErrPoolNotFound = errors.New("pool: 池不存在")
	// ErrPoolAlreadyExists 同名池重复注册
	ErrPoolAlreadyExists = errors.New("pool: 池已存在")
	// ErrInvalidPoolConfig 容量或过期时间非法
	ErrInvalidPoolConfig = errors.New("pool: 无效的池配置")
	// ErrPoolOverload 非阻塞池已满，索引任务被拒绝
	ErrPoolOverload = errors.New("pool: 池已满")
)
