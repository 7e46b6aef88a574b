// Package store 定义配置聚合的持久化端口：
// 整个文档作为单个 JSON 字节串读写，替换是原子的。
package store

import (
	"context"
	"errors"
)

// ErrNotExist 表示持久化文档尚不存在
var ErrNotExist = errors.New("配置文档不存在")

// Store 持久化端口。Read 返回完整文档的 JSON 字节，
// Write 以原子替换的方式写入完整文档。
type Store interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
