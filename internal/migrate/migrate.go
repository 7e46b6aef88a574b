// Package migrate 把历史版本的持久化文档升级为当前结构：
// 缺失字段用文档化默认值补齐，未知顶层键原样透传，升级操作幂等。
package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// Upgrade 把原始 JSON 文档升级为当前结构的配置聚合。
// 文档中的 _export_metadata 会被剥离，不参与升级结果。
func Upgrade(raw []byte) (*types.Aggregate, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return types.DefaultAggregate(), nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("解析配置文档失败: %w", err)
	}
	if doc == nil {
		return types.DefaultAggregate(), nil
	}

	agg := types.DefaultAggregate()

	if rawVersion, ok := doc[types.KeyVersion]; ok && !isNull(rawVersion) {
		if err := json.Unmarshal(rawVersion, &agg.Version); err != nil {
			return nil, fmt.Errorf("解析 version 字段失败: %w", err)
		}
	}

	if err := upgradeReasoners(doc[types.KeyReasonerModels], agg); err != nil {
		return nil, err
	}
	if err := upgradeTargets(doc[types.KeyTargetModels], agg); err != nil {
		return nil, err
	}
	if err := upgradeComposites(doc[types.KeyCompositeModels], agg); err != nil {
		return nil, err
	}
	if err := upgradeSystem(doc[types.KeySystem], agg); err != nil {
		return nil, err
	}
	if err := upgradeProxy(doc[types.KeyProxy], agg); err != nil {
		return nil, err
	}

	// 未知顶层键透传，保证新版本写入的数据不丢失
	for key, value := range doc {
		switch key {
		case types.KeyVersion, types.KeyReasonerModels, types.KeyTargetModels,
			types.KeyCompositeModels, types.KeyProxy, types.KeySystem,
			types.KeyExportMetadata:
			continue
		}
		if agg.Extra == nil {
			agg.Extra = make(map[string]json.RawMessage)
		}
		agg.Extra[key] = append(json.RawMessage(nil), value...)
	}

	return agg, nil
}

func upgradeReasoners(raw json.RawMessage, agg *types.Aggregate) error {
	if isNull(raw) {
		return nil
	}
	var models map[string]types.ReasonerModel
	if err := json.Unmarshal(raw, &models); err != nil {
		return fmt.Errorf("解析 reasoner_models 失败: %w", err)
	}
	for name, m := range models {
		if m.Name == "" {
			m.Name = name
		}
		agg.ReasonerModels[name] = m
	}
	return nil
}

func upgradeTargets(raw json.RawMessage, agg *types.Aggregate) error {
	if isNull(raw) {
		return nil
	}
	var models map[string]types.TargetModel
	if err := json.Unmarshal(raw, &models); err != nil {
		return fmt.Errorf("解析 target_models 失败: %w", err)
	}
	for name, m := range models {
		if m.Name == "" {
			m.Name = name
		}
		if m.ModelFormat == "" {
			m.ModelFormat = types.DefaultModelFormat
		}
		agg.TargetModels[name] = m
	}
	return nil
}

func upgradeComposites(raw json.RawMessage, agg *types.Aggregate) error {
	if isNull(raw) {
		return nil
	}
	var models map[string]types.CompositeModel
	if err := json.Unmarshal(raw, &models); err != nil {
		return fmt.Errorf("解析 composite_models 失败: %w", err)
	}
	for name, m := range models {
		if m.Name == "" {
			m.Name = name
		}
		agg.CompositeModels[name] = m
	}
	return nil
}

func upgradeSystem(raw json.RawMessage, agg *types.Aggregate) error {
	if isNull(raw) {
		return nil
	}
	var sys struct {
		AllowOrigins  json.RawMessage `json:"allow_origins"`
		LogLevel      string          `json:"log_level"`
		APIKey        *string         `json:"api_key"`
		SaveTokens    *bool           `json:"save_tokens"`
		SaveTokensMax json.RawMessage `json:"save_tokens_max"`
	}
	if err := json.Unmarshal(raw, &sys); err != nil {
		return fmt.Errorf("解析 system 失败: %w", err)
	}

	origins, err := coerceOrigins(sys.AllowOrigins)
	if err != nil {
		return err
	}
	agg.System.AllowOrigins = origins

	if sys.LogLevel != "" {
		agg.System.LogLevel = sys.LogLevel
	}
	if sys.APIKey != nil {
		agg.System.APIKey = *sys.APIKey
	}
	if sys.SaveTokens != nil {
		agg.System.SaveTokens = *sys.SaveTokens
	}
	agg.System.SaveTokensMax = coerceSaveTokensMax(sys.SaveTokensMax)
	return nil
}

func upgradeProxy(raw json.RawMessage, agg *types.Aggregate) error {
	if isNull(raw) {
		return nil
	}
	var proxy struct {
		Enabled *bool   `json:"enabled"`
		Address *string `json:"address"`
	}
	if err := json.Unmarshal(raw, &proxy); err != nil {
		return fmt.Errorf("解析 proxy 失败: %w", err)
	}
	if proxy.Enabled != nil {
		agg.Proxy.Enabled = *proxy.Enabled
	}
	if proxy.Address != nil {
		agg.Proxy.Address = *proxy.Address
	}
	return nil
}

// coerceOrigins 把 allow_origins 归一为非空字符串列表。
// 历史版本持久化的是逗号分隔的单个字符串，这里仍然接受；
// 空值或缺失一律回退到 ["*"]。
func coerceOrigins(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return []string{"*"}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		cleaned := make([]string, 0, len(list))
		for _, origin := range list {
			if origin = strings.TrimSpace(origin); origin != "" {
				cleaned = append(cleaned, origin)
			}
		}
		if len(cleaned) == 0 {
			return []string{"*"}, nil
		}
		return cleaned, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		cleaned := make([]string, 0, 1)
		for _, origin := range strings.Split(single, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cleaned = append(cleaned, origin)
			}
		}
		if len(cleaned) == 0 {
			return []string{"*"}, nil
		}
		return cleaned, nil
	}

	return nil, fmt.Errorf("解析 system.allow_origins 失败: 期望字符串列表")
}

// coerceSaveTokensMax 把 save_tokens_max 归一为正整数，
// 非数字或非正数输入一律回退到默认值。
func coerceSaveTokensMax(raw json.RawMessage) int {
	if isNull(raw) {
		return types.DefaultSaveTokensMax
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 0 {
			return n
		}
		return types.DefaultSaveTokensMax
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
	}

	return types.DefaultSaveTokensMax
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
