package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 敏感字段只从环境变量覆盖，配置文件里可以留空。
var secretEnv = map[string]string{
	"market.api_key":            "CROSSBOT_API_KEY",
	"market.api_secret":         "CROSSBOT_API_SECRET",
	"notify.telegram.bot_token": "CROSSBOT_TELEGRAM_TOKEN",
	"notify.redis.password":     "CROSSBOT_REDIS_PASSWORD",
}

// Load 读取配置文件（支持 include 链，被包含的文件先合并、后者覆盖前者），应用默认值并校验。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	walker := &includeWalker{done: make(map[string]bool)}
	if err := walker.visit(root); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range walker.order {
		layer := viper.New()
		layer.SetConfigFile(file)
		if err := layer.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
		if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", file, err)
		}
	}
	// 先记录文件里出现过的键，env 绑定的键不算显式设置
	setKeys := make(keySet)
	for _, key := range v.AllKeys() {
		setKeys.mark(key)
	}
	for key, env := range secretEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// includeWalker 深度优先展开 include，order 为合并顺序，chain 用于报告环。
type includeWalker struct {
	done  map[string]bool
	chain []string
	order []string
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	for _, p := range w.chain {
		if p == path {
			return fmt.Errorf("include cycle detected: %s -> %s", strings.Join(w.chain, " -> "), path)
		}
	}
	if w.done[path] {
		return nil
	}
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	w.chain = append(w.chain, path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	w.chain = w.chain[:len(w.chain)-1]
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}

func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var out []string
	for _, inc := range v.GetStringSlice("include") {
		if inc = strings.TrimSpace(inc); inc != "" {
			out = append(out, inc)
		}
	}
	return out, nil
}
