package registry

import (
	"fmt"
	"sort"

	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// Registry 模型注册表，管理推理/目标/组合三个独立的命名集合。
// 本身不加锁，并发控制由持有聚合的上层负责。
type Registry struct {
	agg *types.Aggregate
}

// New 在给定聚合上创建注册表
func New(agg *types.Aggregate) *Registry {
	return &Registry{agg: agg}
}

// ===== 推理模型 =====

// ListReasoners 按名称排序列出所有推理模型
func (r *Registry) ListReasoners() []types.ReasonerModel {
	models := make([]types.ReasonerModel, 0, len(r.agg.ReasonerModels))
	for _, m := range r.agg.ReasonerModels {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// GetReasoner 获取指定名称的推理模型
func (r *Registry) GetReasoner(name string) (*types.ReasonerModel, error) {
	m, ok := r.agg.ReasonerModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindReasoner, Name: name}
	}
	return &m, nil
}

// AddReasoner 严格新增推理模型，名称已存在时返回 DuplicateNameError
func (r *Registry) AddReasoner(m types.ReasonerModel) error {
	if m.Name == "" {
		return fmt.Errorf("推理模型名称不能为空")
	}
	if _, ok := r.agg.ReasonerModels[m.Name]; ok {
		return &types.DuplicateNameError{Kind: types.ModelKindReasoner, Name: m.Name}
	}
	r.agg.ReasonerModels[m.Name] = m
	return nil
}

// UpsertReasoner 新增或覆盖推理模型，返回被覆盖的旧条目（如有）
func (r *Registry) UpsertReasoner(m types.ReasonerModel) (*types.ReasonerModel, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("推理模型名称不能为空")
	}
	var prev *types.ReasonerModel
	if old, ok := r.agg.ReasonerModels[m.Name]; ok {
		prev = &old
	}
	r.agg.ReasonerModels[m.Name] = m
	return prev, nil
}

// RemoveReasoner 删除推理模型。仍被组合模型引用时拒绝删除，
// 返回 ReferentialConflictError 并列出依赖它的组合模型。
func (r *Registry) RemoveReasoner(name string) (*types.ReasonerModel, error) {
	m, ok := r.agg.ReasonerModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindReasoner, Name: name}
	}
	if deps := DependentComposites(r.agg, types.RefKindReasoner, name); len(deps) > 0 {
		return nil, &types.ReferentialConflictError{
			Kind:       types.ModelKindReasoner,
			Name:       name,
			Dependents: deps,
		}
	}
	delete(r.agg.ReasonerModels, name)
	return &m, nil
}

// ===== 目标模型 =====

// ListTargets 按名称排序列出所有目标模型
func (r *Registry) ListTargets() []types.TargetModel {
	models := make([]types.TargetModel, 0, len(r.agg.TargetModels))
	for _, m := range r.agg.TargetModels {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// GetTarget 获取指定名称的目标模型
func (r *Registry) GetTarget(name string) (*types.TargetModel, error) {
	m, ok := r.agg.TargetModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindTarget, Name: name}
	}
	return &m, nil
}

// AddTarget 严格新增目标模型
func (r *Registry) AddTarget(m types.TargetModel) error {
	if m.Name == "" {
		return fmt.Errorf("目标模型名称不能为空")
	}
	if _, ok := r.agg.TargetModels[m.Name]; ok {
		return &types.DuplicateNameError{Kind: types.ModelKindTarget, Name: m.Name}
	}
	if m.ModelFormat == "" {
		m.ModelFormat = types.DefaultModelFormat
	}
	r.agg.TargetModels[m.Name] = m
	return nil
}

// UpsertTarget 新增或覆盖目标模型
func (r *Registry) UpsertTarget(m types.TargetModel) (*types.TargetModel, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("目标模型名称不能为空")
	}
	if m.ModelFormat == "" {
		m.ModelFormat = types.DefaultModelFormat
	}
	var prev *types.TargetModel
	if old, ok := r.agg.TargetModels[m.Name]; ok {
		prev = &old
	}
	r.agg.TargetModels[m.Name] = m
	return prev, nil
}

// RemoveTarget 删除目标模型，仍被引用时拒绝
func (r *Registry) RemoveTarget(name string) (*types.TargetModel, error) {
	m, ok := r.agg.TargetModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindTarget, Name: name}
	}
	if deps := DependentComposites(r.agg, types.RefKindTarget, name); len(deps) > 0 {
		return nil, &types.ReferentialConflictError{
			Kind:       types.ModelKindTarget,
			Name:       name,
			Dependents: deps,
		}
	}
	delete(r.agg.TargetModels, name)
	return &m, nil
}

// ===== 组合模型 =====

// ListComposites 按名称排序列出所有组合模型
func (r *Registry) ListComposites() []types.CompositeModel {
	models := make([]types.CompositeModel, 0, len(r.agg.CompositeModels))
	for _, m := range r.agg.CompositeModels {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// GetComposite 获取指定名称的组合模型
func (r *Registry) GetComposite(name string) (*types.CompositeModel, error) {
	m, ok := r.agg.CompositeModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindComposite, Name: name}
	}
	return &m, nil
}

// AddComposite 严格新增组合模型，引用不存在时阻塞式拒绝
func (r *Registry) AddComposite(m types.CompositeModel) error {
	if m.Name == "" {
		return fmt.Errorf("组合模型名称不能为空")
	}
	if _, ok := r.agg.CompositeModels[m.Name]; ok {
		return &types.DuplicateNameError{Kind: types.ModelKindComposite, Name: m.Name}
	}
	if vios := validateComposite(r.agg, m); len(vios) > 0 {
		return &types.ValidationFailedError{Violations: vios}
	}
	r.agg.CompositeModels[m.Name] = m
	return nil
}

// UpsertComposite 新增或覆盖组合模型，引用不存在时阻塞式拒绝
func (r *Registry) UpsertComposite(m types.CompositeModel) (*types.CompositeModel, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("组合模型名称不能为空")
	}
	if vios := validateComposite(r.agg, m); len(vios) > 0 {
		return nil, &types.ValidationFailedError{Violations: vios}
	}
	var prev *types.CompositeModel
	if old, ok := r.agg.CompositeModels[m.Name]; ok {
		prev = &old
	}
	r.agg.CompositeModels[m.Name] = m
	return prev, nil
}

// RemoveComposite 删除组合模型
func (r *Registry) RemoveComposite(name string) (*types.CompositeModel, error) {
	m, ok := r.agg.CompositeModels[name]
	if !ok {
		return nil, &types.NotFoundError{Kind: types.ModelKindComposite, Name: name}
	}
	delete(r.agg.CompositeModels, name)
	return &m, nil
}
