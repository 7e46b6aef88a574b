package registry

import (
	"sort"

	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// Validate 检查聚合中所有组合模型的引用完整性，
// 返回按组合模型名称排序的违规列表，空列表表示通过。
func Validate(agg *types.Aggregate) []types.Violation {
	var violations []types.Violation
	for _, m := range agg.CompositeModels {
		violations = append(violations, validateComposite(agg, m)...)
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].CompositeName != violations[j].CompositeName {
			return violations[i].CompositeName < violations[j].CompositeName
		}
		return violations[i].MissingRefKind < violations[j].MissingRefKind
	})
	return violations
}

// validateComposite 校验单个组合模型的推理/目标引用
func validateComposite(agg *types.Aggregate, m types.CompositeModel) []types.Violation {
	var violations []types.Violation
	if _, ok := agg.ReasonerModels[m.ReasonerRef]; !ok {
		violations = append(violations, types.Violation{
			CompositeName:  m.Name,
			MissingRefKind: types.RefKindReasoner,
			MissingRefName: m.ReasonerRef,
		})
	}
	if _, ok := agg.TargetModels[m.TargetRef]; !ok {
		violations = append(violations, types.Violation{
			CompositeName:  m.Name,
			MissingRefKind: types.RefKindTarget,
			MissingRefName: m.TargetRef,
		})
	}
	return violations
}

// MarkInvalid 劝告式处理：把违规的组合模型标记为 is_valid=false，
// 加载/导入时保留条目而不是整体拒绝。
func MarkInvalid(agg *types.Aggregate, violations []types.Violation) {
	for _, v := range violations {
		if m, ok := agg.CompositeModels[v.CompositeName]; ok {
			m.IsValid = false
			agg.CompositeModels[v.CompositeName] = m
		}
	}
}

// DependentComposites 返回引用指定推理/目标模型的组合模型名称，按名称排序
func DependentComposites(agg *types.Aggregate, kind types.RefKind, name string) []string {
	var deps []string
	for _, m := range agg.CompositeModels {
		switch kind {
		case types.RefKindReasoner:
			if m.ReasonerRef == name {
				deps = append(deps, m.Name)
			}
		case types.RefKindTarget:
			if m.TargetRef == name {
				deps = append(deps, m.Name)
			}
		}
	}
	sort.Strings(deps)
	return deps
}
