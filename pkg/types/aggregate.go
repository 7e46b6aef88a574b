package types

import (
	"encoding/json"
)

// 持久化文档的固定顶层键
const (
	KeyVersion         = "version"
	KeyReasonerModels  = "reasoner_models"
	KeyTargetModels    = "target_models"
	KeyCompositeModels = "composite_models"
	KeyProxy           = "proxy"
	KeySystem          = "system"
	KeyExportMetadata  = "_export_metadata"
)

// ExportSource 导出元数据中的来源标识
const ExportSource = "deepclaude"

// ExportMetadata - 导出文档附带的来源信息
type ExportMetadata struct {
	ExportTime string `json:"export_time"`
	Source     string `json:"source"`
}

// Aggregate - 完整配置聚合，整个文档是持久化的最小单位。
// Extra 保存本版本不认识的顶层键，序列化时原样写回，
// 保证新版本写入的数据不会被旧版本丢弃。
type Aggregate struct {
	Version         int64                      `json:"-" yaml:"-"`
	ReasonerModels  map[string]ReasonerModel   `json:"-" yaml:"-"`
	TargetModels    map[string]TargetModel     `json:"-" yaml:"-"`
	CompositeModels map[string]CompositeModel  `json:"-" yaml:"-"`
	Proxy           ProxySettings              `json:"-" yaml:"-"`
	System          SystemSettings             `json:"-" yaml:"-"`
	Extra           map[string]json.RawMessage `json:"-" yaml:"-"`
}

// DefaultAggregate 返回全默认值的配置聚合
func DefaultAggregate() *Aggregate {
	return &Aggregate{
		Version:         0,
		ReasonerModels:  map[string]ReasonerModel{},
		TargetModels:    map[string]TargetModel{},
		CompositeModels: map[string]CompositeModel{},
		Proxy:           DefaultProxySettings(),
		System:          DefaultSystemSettings(),
	}
}

// MarshalJSON 序列化为持久化文档：固定键加上 Extra 中的未知键
func (a *Aggregate) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(a.Extra)+6)
	for k, v := range a.Extra {
		doc[k] = v
	}

	fields := []struct {
		key   string
		value interface{}
	}{
		{KeyVersion, a.Version},
		{KeyReasonerModels, a.ReasonerModels},
		{KeyTargetModels, a.TargetModels},
		{KeyCompositeModels, a.CompositeModels},
		{KeyProxy, a.Proxy},
		{KeySystem, a.System},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		doc[f.key] = data
	}

	return json.Marshal(doc)
}

// Clone 返回聚合的深拷贝，避免调用方修改内部数据
func (a *Aggregate) Clone() *Aggregate {
	clone := &Aggregate{
		Version:         a.Version,
		ReasonerModels:  make(map[string]ReasonerModel, len(a.ReasonerModels)),
		TargetModels:    make(map[string]TargetModel, len(a.TargetModels)),
		CompositeModels: make(map[string]CompositeModel, len(a.CompositeModels)),
		Proxy:           a.Proxy,
		System:          a.System,
	}

	for name, m := range a.ReasonerModels {
		clone.ReasonerModels[name] = m
	}
	for name, m := range a.TargetModels {
		clone.TargetModels[name] = m
	}
	for name, m := range a.CompositeModels {
		clone.CompositeModels[name] = m
	}

	clone.System.AllowOrigins = append([]string(nil), a.System.AllowOrigins...)

	if a.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(a.Extra))
		for k, v := range a.Extra {
			clone.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}

	return clone
}
