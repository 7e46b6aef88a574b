package types

import (
	"fmt"
	"strings"
)

// NotFoundError - 指定名称的模型不存在
type NotFoundError struct {
	Kind ModelKind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("模型不存在: %s/%s", e.Kind, e.Name)
}

// DuplicateNameError - 集合内名称已存在（仅严格新增时可达，upsert 会静默覆盖）
type DuplicateNameError struct {
	Kind ModelKind
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("模型名称已存在: %s/%s", e.Kind, e.Name)
}

// ReferentialConflictError - 删除的模型仍被组合模型引用
type ReferentialConflictError struct {
	Kind       ModelKind
	Name       string
	Dependents []string
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("模型 %s/%s 仍被组合模型引用: %s",
		e.Kind, e.Name, strings.Join(e.Dependents, ", "))
}

// ValidationFailedError - 阻塞式引用校验失败
type ValidationFailedError struct {
	Violations []Violation
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s -> %s/%s",
			v.CompositeName, v.MissingRefKind, v.MissingRefName))
	}
	return fmt.Sprintf("引用校验失败: %s", strings.Join(parts, "; "))
}

// CorruptDocumentError - 持久化文档无法解析
type CorruptDocumentError struct {
	Err error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("配置文档损坏: %v", e.Err)
}

func (e *CorruptDocumentError) Unwrap() error { return e.Err }

// InvalidDocumentError - 导入的文档不符合配置结构
type InvalidDocumentError struct {
	Err error
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("无效的配置文档: %v", e.Err)
}

func (e *InvalidDocumentError) Unwrap() error { return e.Err }

// PersistenceError - 持久化端口不可用
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化%s失败: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StaleWriteError - 保存时发现文档已被其他写入者更新
type StaleWriteError struct {
	Expected int64
	Actual   int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("配置已被其他写入者更新: 读取版本 %d, 当前版本 %d",
		e.Expected, e.Actual)
}
