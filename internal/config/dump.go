package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 为配置路径的环境变量名。
const EnvConfigPath = "CROSSBOT_CONFIG"

// DefaultPath 返回配置文件路径：优先环境变量，否则 configs/config.yaml。
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// Dump 将生效配置序列化为 YAML。密钥字段带 yaml:"-"，不会输出。
func (c *Config) Dump() (string, error) {
	if c == nil {
		return "", fmt.Errorf("nil config")
	}
	raw, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("dump config: %w", err)
	}
	return string(raw), nil
}
