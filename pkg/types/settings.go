package types

// 系统设置的默认值
const (
	DefaultLogLevel      = "INFO"
	DefaultAPIKey        = "123456"
	DefaultSaveTokensMax = 5
)

// SystemSettings - 系统全局设置（单例）
type SystemSettings struct {
	AllowOrigins  []string `json:"allow_origins" yaml:"allow_origins"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	APIKey        string   `json:"api_key" yaml:"api_key"`
	SaveTokens    bool     `json:"save_tokens" yaml:"save_tokens"`
	SaveTokensMax int      `json:"save_tokens_max" yaml:"save_tokens_max"`
}

// ProxySettings - 代理设置（单例）
type ProxySettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// SystemSettingsPatch - 系统设置的部分更新，nil 字段表示保持不变。
// 每个字段都是整体替换，不做字段内部的深合并。
type SystemSettingsPatch struct {
	AllowOrigins  *[]string `json:"allow_origins,omitempty"`
	LogLevel      *string   `json:"log_level,omitempty"`
	APIKey        *string   `json:"api_key,omitempty"`
	SaveTokens    *bool     `json:"save_tokens,omitempty"`
	SaveTokensMax *int      `json:"save_tokens_max,omitempty"`
}

// ProxySettingsPatch - 代理设置的部分更新
type ProxySettingsPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Address *string `json:"address,omitempty"`
}

// DefaultSystemSettings 返回系统设置的默认值
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		AllowOrigins:  []string{"*"},
		LogLevel:      DefaultLogLevel,
		APIKey:        DefaultAPIKey,
		SaveTokens:    false,
		SaveTokensMax: DefaultSaveTokensMax,
	}
}

// DefaultProxySettings 返回代理设置的默认值
func DefaultProxySettings() ProxySettings {
	return ProxySettings{
		Enabled: false,
		Address: "",
	}
}
