package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deepclaude/deepclaude-go/internal/migrate"
	"github.com/deepclaude/deepclaude-go/internal/registry"
	"github.com/deepclaude/deepclaude-go/internal/store"
	"github.com/deepclaude/deepclaude-go/pkg/logger"
	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// Manager 配置聚合管理器：负责聚合的加载、保存、导出、导入，
// 以及所有模型和设置的变更操作。变更先在副本上完成并通过阻塞式
// 校验，持久化成功后才替换当前聚合，任何失败都不会留下部分修改。
type Manager struct {
	store         store.Store
	mu            sync.RWMutex
	agg           *types.Aggregate
	loadedVersion int64
}

// NewManager 创建配置管理器
func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// Load 从持久化端口加载配置：先经过迁移补默认值，再做劝告式
// 引用校验（违规的组合模型标记为无效并告警，不拒绝加载）。
// 文档不存在时物化全默认配置并写入。
func (m *Manager) Load(ctx context.Context) (*types.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Read(ctx)
	if errors.Is(err, store.ErrNotExist) {
		agg := types.DefaultAggregate()
		agg.Version = 1
		data, err := json.Marshal(agg)
		if err != nil {
			return nil, fmt.Errorf("序列化默认配置失败: %w", err)
		}
		if err := m.store.Write(ctx, data); err != nil {
			return nil, m.wrapPersistence(ctx, "写入", err)
		}
		m.agg = agg
		m.loadedVersion = agg.Version
		logger.Info("配置文档不存在，已创建默认配置")
		return agg.Clone(), nil
	}
	if err != nil {
		return nil, m.wrapPersistence(ctx, "读取", err)
	}

	agg, err := migrate.Upgrade(raw)
	if err != nil {
		return nil, &types.CorruptDocumentError{Err: err}
	}

	if violations := registry.Validate(agg); len(violations) > 0 {
		registry.MarkInvalid(agg, violations)
		for _, v := range violations {
			logger.Warn("组合模型 %s 引用的 %s 模型 %s 不存在，已标记为无效",
				v.CompositeName, v.MissingRefKind, v.MissingRefName)
		}
	}

	m.agg = agg
	m.loadedVersion = agg.Version
	logger.Info("已加载配置: 推理模型 %d 个, 目标模型 %d 个, 组合模型 %d 个",
		len(agg.ReasonerModels), len(agg.TargetModels), len(agg.CompositeModels))
	return agg.Clone(), nil
}

// Get 获取当前聚合的深拷贝
func (m *Manager) Get() *types.Aggregate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agg.Clone()
}

// Save 阻塞式校验后整体替换持久化文档。校验失败返回
// ValidationFailedError 且不产生任何写入。
func (m *Manager) Save(ctx context.Context, agg *types.Aggregate) (*types.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.commitUnsafe(ctx, agg.Clone()); err != nil {
		return nil, err
	}
	return m.agg.Clone(), nil
}

// Replace 解析完整文档后整体替换当前配置（POST /v1/config 的语义）。
// 文档不符合结构时返回 InvalidDocumentError。
func (m *Manager) Replace(ctx context.Context, raw []byte) (*types.Aggregate, error) {
	agg, err := migrate.Upgrade(raw)
	if err != nil {
		return nil, &types.InvalidDocumentError{Err: err}
	}
	return m.Save(ctx, agg)
}

// Import 导入外部文档并整体覆盖当前配置。_export_metadata 在迁移时
// 被剥离；校验失败时当前配置保持不变。导入是全量覆盖而非合并。
func (m *Manager) Import(ctx context.Context, raw []byte) (*types.Aggregate, error) {
	return m.Replace(ctx, raw)
}

// Export 导出完整配置并附加 _export_metadata（导出时间与来源标识）。
// 导出不修改持久化状态。
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, err := json.Marshal(m.agg)
	m.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}

	meta, err := json.Marshal(types.ExportMetadata{
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Source:     types.ExportSource,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化导出元数据失败: %w", err)
	}
	doc[types.KeyExportMetadata] = meta

	return json.MarshalIndent(doc, "", "  ")
}

// commitUnsafe 提交候选聚合：阻塞式校验 -> 过期写检查 -> 原子写入 ->
// 替换内存聚合。调用方必须持有写锁。
func (m *Manager) commitUnsafe(ctx context.Context, candidate *types.Aggregate) error {
	if violations := registry.Validate(candidate); len(violations) > 0 {
		return &types.ValidationFailedError{Violations: violations}
	}

	stored, ok := m.storedVersion(ctx)
	if ok && stored != m.loadedVersion {
		return &types.StaleWriteError{Expected: m.loadedVersion, Actual: stored}
	}

	candidate.Version = m.loadedVersion + 1
	data, err := json.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := m.store.Write(ctx, data); err != nil {
		return m.wrapPersistence(ctx, "写入", err)
	}

	m.agg = candidate
	m.loadedVersion = candidate.Version
	return nil
}

// storedVersion 读取持久化文档当前的版本号。
// 文档不存在或无法解析时返回 ok=false，此时不做过期写检查。
func (m *Manager) storedVersion(ctx context.Context) (int64, bool) {
	raw, err := m.store.Read(ctx)
	if err != nil {
		return 0, false
	}
	var doc struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, false
	}
	return doc.Version, true
}

// wrapPersistence 包装持久化错误，调用方取消的错误原样透出
func (m *Manager) wrapPersistence(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &types.PersistenceError{Op: op, Err: err}
}

// mutate 在聚合副本上执行变更并提交，失败时当前配置保持不变
func (m *Manager) mutate(ctx context.Context, fn func(*registry.Registry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.agg.Clone()
	if err := fn(registry.New(candidate)); err != nil {
		return err
	}
	return m.commitUnsafe(ctx, candidate)
}

// ===== 推理模型操作 =====

// ListReasonerModels 按名称排序列出推理模型
func (m *Manager) ListReasonerModels() []types.ReasonerModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).ListReasoners()
}

// GetReasonerModel 获取指定推理模型
func (m *Manager) GetReasonerModel(name string) (*types.ReasonerModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).GetReasoner(name)
}

// AddReasonerModel 严格新增推理模型并持久化
func (m *Manager) AddReasonerModel(ctx context.Context, model types.ReasonerModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		return r.AddReasoner(model)
	})
}

// UpsertReasonerModel 新增或覆盖推理模型并持久化
func (m *Manager) UpsertReasonerModel(ctx context.Context, model types.ReasonerModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.UpsertReasoner(model)
		return err
	})
}

// RemoveReasonerModel 删除推理模型，仍被组合模型引用时拒绝
func (m *Manager) RemoveReasonerModel(ctx context.Context, name string) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.RemoveReasoner(name)
		return err
	})
}

// ===== 目标模型操作 =====

// ListTargetModels 按名称排序列出目标模型
func (m *Manager) ListTargetModels() []types.TargetModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).ListTargets()
}

// GetTargetModel 获取指定目标模型
func (m *Manager) GetTargetModel(name string) (*types.TargetModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).GetTarget(name)
}

// AddTargetModel 严格新增目标模型并持久化
func (m *Manager) AddTargetModel(ctx context.Context, model types.TargetModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		return r.AddTarget(model)
	})
}

// UpsertTargetModel 新增或覆盖目标模型并持久化
func (m *Manager) UpsertTargetModel(ctx context.Context, model types.TargetModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.UpsertTarget(model)
		return err
	})
}

// RemoveTargetModel 删除目标模型，仍被组合模型引用时拒绝
func (m *Manager) RemoveTargetModel(ctx context.Context, name string) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.RemoveTarget(name)
		return err
	})
}

// ===== 组合模型操作 =====

// ListCompositeModels 按名称排序列出组合模型
func (m *Manager) ListCompositeModels() []types.CompositeModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).ListComposites()
}

// GetCompositeModel 获取指定组合模型
func (m *Manager) GetCompositeModel(name string) (*types.CompositeModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return registry.New(m.agg).GetComposite(name)
}

// AddCompositeModel 严格新增组合模型并持久化，引用不存在时拒绝
func (m *Manager) AddCompositeModel(ctx context.Context, model types.CompositeModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		return r.AddComposite(model)
	})
}

// UpsertCompositeModel 新增或覆盖组合模型并持久化，引用不存在时拒绝
func (m *Manager) UpsertCompositeModel(ctx context.Context, model types.CompositeModel) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.UpsertComposite(model)
		return err
	})
}

// RemoveCompositeModel 删除组合模型
func (m *Manager) RemoveCompositeModel(ctx context.Context, name string) error {
	return m.mutate(ctx, func(r *registry.Registry) error {
		_, err := r.RemoveComposite(name)
		return err
	})
}
