package migrate

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestUpgrade_EmptyDocument(t *testing.T) {
	agg, err := Upgrade([]byte(`{}`))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	if got := agg.System.LogLevel; got != "INFO" {
		t.Errorf("LogLevel = %v, want INFO", got)
	}
	if got := agg.System.APIKey; got != "123456" {
		t.Errorf("APIKey = %v, want 123456", got)
	}
	if got := agg.System.SaveTokensMax; got != 5 {
		t.Errorf("SaveTokensMax = %d, want 5", got)
	}
	if got := agg.System.AllowOrigins; !reflect.DeepEqual(got, []string{"*"}) {
		t.Errorf("AllowOrigins = %v, want [*]", got)
	}
	if agg.System.SaveTokens {
		t.Error("SaveTokens = true, want false")
	}
	if agg.Proxy.Enabled {
		t.Error("Proxy.Enabled = true, want false")
	}
	if len(agg.ReasonerModels) != 0 || len(agg.TargetModels) != 0 || len(agg.CompositeModels) != 0 {
		t.Error("集合应为空")
	}
}

func TestUpgrade_NilAndEmptyInput(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("null")} {
		agg, err := Upgrade(raw)
		if err != nil {
			t.Fatalf("Upgrade(%q) error = %v", raw, err)
		}
		if got := agg.System.SaveTokensMax; got != 5 {
			t.Errorf("Upgrade(%q) SaveTokensMax = %d, want 5", raw, got)
		}
	}
}

func TestUpgrade_ParseError(t *testing.T) {
	if _, err := Upgrade([]byte(`{invalid`)); err == nil {
		t.Error("Upgrade() 应该对非法 JSON 返回错误")
	}
}

func TestUpgrade_SaveTokensMaxCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"missing", `{"system":{}}`, 5},
		{"null", `{"system":{"save_tokens_max":null}}`, 5},
		{"zero", `{"system":{"save_tokens_max":0}}`, 5},
		{"negative", `{"system":{"save_tokens_max":-3}}`, 5},
		{"valid", `{"system":{"save_tokens_max":9}}`, 9},
		{"numeric string", `{"system":{"save_tokens_max":"7"}}`, 7},
		{"garbage string", `{"system":{"save_tokens_max":"abc"}}`, 5},
		{"bool", `{"system":{"save_tokens_max":true}}`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := Upgrade([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Upgrade() error = %v", err)
			}
			if got := agg.System.SaveTokensMax; got != tt.want {
				t.Errorf("SaveTokensMax = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpgrade_AllowOriginsCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"missing", `{"system":{}}`, []string{"*"}},
		{"empty list", `{"system":{"allow_origins":[]}}`, []string{"*"}},
		{"list", `{"system":{"allow_origins":["http://a","http://b"]}}`, []string{"http://a", "http://b"}},
		{"legacy string", `{"system":{"allow_origins":"http://a, http://b"}}`, []string{"http://a", "http://b"}},
		{"legacy wildcard", `{"system":{"allow_origins":"*"}}`, []string{"*"}},
		{"blank entries", `{"system":{"allow_origins":["", "  "]}}`, []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := Upgrade([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Upgrade() error = %v", err)
			}
			if got := agg.System.AllowOrigins; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllowOrigins = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpgrade_TargetModelFormatDefault(t *testing.T) {
	raw := `{"target_models":{"t1":{"model_id":"gpt-4o"}}}`
	agg, err := Upgrade([]byte(raw))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	m, ok := agg.TargetModels["t1"]
	if !ok {
		t.Fatal("目标模型 t1 不存在")
	}
	if m.ModelFormat != "openai" {
		t.Errorf("ModelFormat = %v, want openai", m.ModelFormat)
	}
	if m.Name != "t1" {
		t.Errorf("Name = %v, want t1 (应从集合键回填)", m.Name)
	}
}

func TestUpgrade_NameBackfill(t *testing.T) {
	raw := `{
		"reasoner_models":{"r1":{"model_id":"deepseek-reasoner"}},
		"composite_models":{"c1":{"reasoner_ref":"r1","target_ref":"t1"}}
	}`
	agg, err := Upgrade([]byte(raw))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if got := agg.ReasonerModels["r1"].Name; got != "r1" {
		t.Errorf("ReasonerModels[r1].Name = %v, want r1", got)
	}
	if got := agg.CompositeModels["c1"].Name; got != "c1" {
		t.Errorf("CompositeModels[c1].Name = %v, want c1", got)
	}
}

func TestUpgrade_UnknownKeysPreserved(t *testing.T) {
	raw := `{"version":2,"future_feature":{"mode":"on"}}`
	agg, err := Upgrade([]byte(raw))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	extra, ok := agg.Extra["future_feature"]
	if !ok {
		t.Fatal("未知键 future_feature 应被保留")
	}
	if string(extra) != `{"mode":"on"}` {
		t.Errorf("Extra[future_feature] = %s", extra)
	}

	// 序列化后未知键应原样写回
	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := doc["future_feature"]; !ok {
		t.Error("序列化结果应包含 future_feature")
	}
}

func TestUpgrade_StripsExportMetadata(t *testing.T) {
	raw := `{"_export_metadata":{"export_time":"2024-01-01T00:00:00Z","source":"deepclaude"}}`
	agg, err := Upgrade([]byte(raw))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if _, ok := agg.Extra["_export_metadata"]; ok {
		t.Error("_export_metadata 不应进入 Extra")
	}
}

func TestUpgrade_Idempotent(t *testing.T) {
	raw := `{
		"version": 4,
		"reasoner_models":{"r1":{"model_id":"deepseek-reasoner","is_origin_reasoning":true}},
		"target_models":{"t1":{"model_id":"claude-3-5-sonnet"}},
		"composite_models":{"c1":{"reasoner_ref":"r1","target_ref":"t1","is_valid":true}},
		"system":{"allow_origins":"*","save_tokens_max":"3"},
		"custom_section":[1,2,3]
	}`

	first, err := Upgrade([]byte(raw))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	second, err := Upgrade(data)
	if err != nil {
		t.Fatalf("Upgrade(Upgrade(x)) error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("升级不幂等:\n第一次: %+v\n第二次: %+v", first, second)
	}
}

func TestUpgrade_PreservesVersion(t *testing.T) {
	agg, err := Upgrade([]byte(`{"version":7}`))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if agg.Version != 7 {
		t.Errorf("Version = %d, want 7", agg.Version)
	}
}
