package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/memeshelf/internal/paths"
	"github.com/mesh-intelligence/memeshelf/internal/search"
	"github.com/mesh-intelligence/memeshelf/internal/vision"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SHELF"
)

// defaultConfig is written by init and backs every key viper reads.
func defaultConfig() types.Config {
	return types.Config{
		Backend:         types.BackendSQLite,
		Locale:          "zh-CN",
		SearchThreshold: search.DefaultThreshold,
		Remote: types.RemoteConfig{
			Kind:      types.RemoteWebDAV,
			Resource:  types.DefaultRemoteResource,
			TimeoutMS: 30000,
		},
		Vision: types.VisionConfig{Model: vision.DefaultModel},
		Log:    types.LogConfig{Level: "info", Format: "console"},
	}
}

// setDefaults registers every key so SHELF_* environment variables apply
// even when the config file omits them.
func setDefaults(v *viper.Viper) {
	d := defaultConfig()
	defaults := map[string]any{
		"backend":            d.Backend,
		"data_dir":           d.DataDir,
		"quota_bytes":        d.QuotaBytes,
		"locale":             d.Locale,
		"search_threshold":   d.SearchThreshold,
		"remote.kind":        d.Remote.Kind,
		"remote.url":         "",
		"remote.username":    "",
		"remote.password":    "",
		"remote.bucket":      "",
		"remote.use_ssl":     false,
		"remote.resource":    d.Remote.Resource,
		"remote.timeout_ms":  d.Remote.TimeoutMS,
		"assets.endpoint":    "",
		"assets.access_key":  "",
		"assets.secret_key":  "",
		"assets.bucket":      "",
		"assets.use_ssl":     false,
		"assets.public_base": "",
		"vision.api_key":     "",
		"vision.model":       d.Vision.Model,
		"log.level":          d.Log.Level,
		"log.format":         d.Log.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig reads config.yaml from configDir, layering SHELF_* environment
// variables on top. A missing config.yaml is not an error.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("vision.api_key", "SHELF_VISION_API_KEY", "GEMINI_API_KEY"); err != nil {
		return types.Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns false.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := defaultConfig()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	return true, os.WriteFile(path, data, 0o600)
}
