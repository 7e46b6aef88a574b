package config

import (
	"context"
	"strings"

	"github.com/deepclaude/deepclaude-go/pkg/logger"
	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// GetSystemSettings 获取系统设置
func (m *Manager) GetSystemSettings() types.SystemSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sys := m.agg.System
	sys.AllowOrigins = append([]string(nil), sys.AllowOrigins...)
	return sys
}

// UpdateSystemSettings 合并部分更新到系统设置并持久化。
// 每个字段整体替换，空的 allow_origins 和非正的 save_tokens_max
// 按文档化规则回退到默认值。日志级别变更立即生效。
func (m *Manager) UpdateSystemSettings(ctx context.Context, patch types.SystemSettingsPatch) (types.SystemSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.agg.Clone()
	applySystemPatch(&candidate.System, patch)
	if err := m.commitUnsafe(ctx, candidate); err != nil {
		return types.SystemSettings{}, err
	}

	if patch.LogLevel != nil {
		logger.SetLevel(m.agg.System.LogLevel)
	}
	sys := m.agg.System
	sys.AllowOrigins = append([]string(nil), sys.AllowOrigins...)
	return sys, nil
}

// GetProxySettings 获取代理设置
func (m *Manager) GetProxySettings() types.ProxySettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agg.Proxy
}

// UpdateProxySettings 合并部分更新到代理设置并持久化
func (m *Manager) UpdateProxySettings(ctx context.Context, patch types.ProxySettingsPatch) (types.ProxySettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.agg.Clone()
	applyProxyPatch(&candidate.Proxy, patch)
	if err := m.commitUnsafe(ctx, candidate); err != nil {
		return types.ProxySettings{}, err
	}
	return m.agg.Proxy, nil
}

func applySystemPatch(sys *types.SystemSettings, patch types.SystemSettingsPatch) {
	if patch.AllowOrigins != nil {
		origins := make([]string, 0, len(*patch.AllowOrigins))
		for _, origin := range *patch.AllowOrigins {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		sys.AllowOrigins = origins
	}
	if patch.LogLevel != nil {
		level := strings.TrimSpace(*patch.LogLevel)
		if level == "" {
			level = types.DefaultLogLevel
		}
		sys.LogLevel = level
	}
	if patch.APIKey != nil {
		sys.APIKey = *patch.APIKey
	}
	if patch.SaveTokens != nil {
		sys.SaveTokens = *patch.SaveTokens
	}
	if patch.SaveTokensMax != nil {
		if *patch.SaveTokensMax > 0 {
			sys.SaveTokensMax = *patch.SaveTokensMax
		} else {
			sys.SaveTokensMax = types.DefaultSaveTokensMax
		}
	}
}

func applyProxyPatch(proxy *types.ProxySettings, patch types.ProxySettingsPatch) {
	if patch.Enabled != nil {
		proxy.Enabled = *patch.Enabled
	}
	if patch.Address != nil {
		proxy.Address = strings.TrimSpace(*patch.Address)
	}
}
