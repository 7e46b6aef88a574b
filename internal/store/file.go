package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// FileStore 基于单个文件的持久化实现。
// 按扩展名选择 JSON 或 YAML 编码，对外始终交换 JSON 字节。
type FileStore struct {
	path string
}

// NewFileStore 创建文件持久化，支持 .json / .yaml / .yml 路径
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 返回文档文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Read 读取完整文档，文件不存在时返回 ErrNotExist
func (s *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if s.isYAML() {
		return yamlToJSON(data)
	}
	return data, nil
}

// Write 原子替换完整文档：先写临时文件再重命名，
// 中途取消或失败都不会留下半写状态。
func (s *FileStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := data
	if s.isYAML() {
		var err error
		if out, err = jsonToYAML(data); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".deepclaude-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("设置配置文件权限失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("替换配置文件失败: %w", err)
	}
	return nil
}

func (s *FileStore) isYAML() bool {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON 把 YAML 文档转换为等价的 JSON 字节
func yamlToJSON(data []byte) ([]byte, error) {
	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
	}
	return json.Marshal(normalizeYAML(value))
}

// jsonToYAML 把 JSON 文档转换为 YAML 字节
func jsonToYAML(data []byte) ([]byte, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("解析 JSON 配置失败: %w", err)
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("序列化 YAML 配置失败: %w", err)
	}
	return out, nil
}

// normalizeYAML 把 yaml.v2 解出的 map[interface{}]interface{}
// 递归转换为 JSON 可序列化的 map[string]interface{}
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for key, item := range v {
			m[fmt.Sprintf("%v", key)] = normalizeYAML(item)
		}
		return m
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return v
	}
}
