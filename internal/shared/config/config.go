package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// AppEnv represents the application environment
type AppEnv string

const (
	AppEnvLocal       AppEnv = "local"
	AppEnvProduction  AppEnv = "production"
	AppEnvDevelopment AppEnv = "development"
	AppEnvTesting     AppEnv = "testing"
)

type Config struct {
	XBearerToken     string            `koanf:"x_bearer_token"`
	TelegramBotToken string            `koanf:"telegram_bot_token"`
	TelegramAPIURL   string            `koanf:"telegram_api_url"`
	SourceAPIURL     string            `koanf:"source_api_url"`
	TeamPasswords    map[string]string `koanf:"team_passwords"`
	StoragePath      string            `koanf:"storage_path"`
	MediaDir         string            `koanf:"media_dir"`
	HTTPPort         string            `koanf:"http_port"`
	AppEnv           AppEnv            `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = koanfjson.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	// Convert X_BEARER_TOKEN -> x_bearer_token
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("source_api_url") {
		k.Set("source_api_url", "https://api.twitter.com/2")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "./data")
	}
	if !k.Exists("media_dir") {
		k.Set("media_dir", os.TempDir())
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse TeamPasswords from a JSON string if needed.
	// koanf yields a map from config files, but env vars carry the whole
	// thing as a single JSON object string (TEAM_PASSWORDS='{"alice":"s3cret"}')
	if raw := k.Get("team_passwords"); raw != nil {
		if s, ok := raw.(string); ok {
			parsed, err := ParseTeamPasswords(s)
			if err != nil {
				return nil, oops.With("context", "parsing team_passwords").Wrap(err)
			}
			cfg.TeamPasswords = parsed
		}
	}

	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		cfg.AppEnv = AppEnv(strings.ToLower(appEnvStr))
	}

	// Validate required fields
	if cfg.XBearerToken == "" {
		return nil, errors.ErrMissingBearerToken
	}
	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}
	if len(cfg.TeamPasswords) == 0 {
		return nil, errors.ErrMissingTeamAccess
	}

	return &cfg, nil
}

// ParseTeamPasswords parses a JSON object of username -> password pairs
func ParseTeamPasswords(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]string{}, nil
	}

	var passwords map[string]string
	if err := json.Unmarshal([]byte(s), &passwords); err != nil {
		return nil, err
	}
	return passwords, nil
}
