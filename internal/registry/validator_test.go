package registry

import (
	"reflect"
	"testing"

	"github.com/deepclaude/deepclaude-go/pkg/types"
)

func TestValidate_OK(t *testing.T) {
	if violations := Validate(newTestAggregate()); len(violations) != 0 {
		t.Errorf("Validate() = %v, want 空", violations)
	}
}

func TestValidate_MissingRefs(t *testing.T) {
	agg := newTestAggregate()
	agg.CompositeModels["broken"] = types.CompositeModel{
		Name:        "broken",
		ReasonerRef: "ghost-r",
		TargetRef:   "ghost-t",
		IsValid:     true,
	}

	violations := Validate(agg)
	want := []types.Violation{
		{CompositeName: "broken", MissingRefKind: types.RefKindReasoner, MissingRefName: "ghost-r"},
		{CompositeName: "broken", MissingRefKind: types.RefKindTarget, MissingRefName: "ghost-t"},
	}
	if !reflect.DeepEqual(violations, want) {
		t.Errorf("Validate() = %+v, want %+v", violations, want)
	}
}

func TestValidate_SortedByCompositeName(t *testing.T) {
	agg := newTestAggregate()
	agg.CompositeModels["zz"] = types.CompositeModel{Name: "zz", ReasonerRef: "ghost", TargetRef: "t1"}
	agg.CompositeModels["aa"] = types.CompositeModel{Name: "aa", ReasonerRef: "ghost", TargetRef: "t1"}

	violations := Validate(agg)
	if len(violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(violations))
	}
	if violations[0].CompositeName != "aa" || violations[1].CompositeName != "zz" {
		t.Errorf("排序错误: %v, %v", violations[0].CompositeName, violations[1].CompositeName)
	}
}

func TestMarkInvalid(t *testing.T) {
	agg := newTestAggregate()
	agg.CompositeModels["broken"] = types.CompositeModel{
		Name:        "broken",
		ReasonerRef: "ghost",
		TargetRef:   "t1",
		IsValid:     true,
	}

	MarkInvalid(agg, Validate(agg))

	if agg.CompositeModels["broken"].IsValid {
		t.Error("broken 应被标记为无效")
	}
	if !agg.CompositeModels["c1"].IsValid {
		t.Error("c1 不应被标记为无效")
	}
}

func TestDependentComposites(t *testing.T) {
	agg := newTestAggregate()
	agg.CompositeModels["c2"] = types.CompositeModel{Name: "c2", ReasonerRef: "r1", TargetRef: "t1"}

	deps := DependentComposites(agg, types.RefKindReasoner, "r1")
	if !reflect.DeepEqual(deps, []string{"c1", "c2"}) {
		t.Errorf("DependentComposites() = %v, want [c1 c2]", deps)
	}

	if deps := DependentComposites(agg, types.RefKindTarget, "unused"); len(deps) != 0 {
		t.Errorf("DependentComposites(unused) = %v, want 空", deps)
	}
}
