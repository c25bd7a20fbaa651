package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "nekowatch.yaml"
	// GlobalConfigDir is the directory for the per-user config.
	GlobalConfigDir = ".config/nekowatch"
	// EnvPrefix prefixes environment overrides (NEKOWATCH_POLL_INTERVAL, ...).
	EnvPrefix = "NEKOWATCH"
)

// Load reads config from the specified path. Values missing from the file keep
// their defaults; environment variables override both.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create nekowatch.yaml or point at one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, filepath.Dir(path))
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. nekowatch.yaml in current directory
// 3. ~/.config/nekowatch/nekowatch.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		global := filepath.Join(home, GlobalConfigDir, ConfigFileName)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads the config found via Find, or returns defaults (with
// environment overrides applied) when there is no file.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		cwd, _ := os.Getwd()
		return parseConfig(newViper(), cwd)
	}

	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key with viper so AutomaticEnv can override
// keys the file does not mention.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("hosts_file", d.HostsFile)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.timeout", d.Poll.Timeout)
	v.SetDefault("poll.down_threshold", d.Poll.DownThreshold)
	v.SetDefault("traffic.interval", d.Traffic.Interval)
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout)
	v.SetDefault("ssh.strict_host_key_checking", d.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.known_hosts", d.SSH.KnownHosts)
	v.SetDefault("agent.download_url", d.Agent.DownloadURL)
	v.SetDefault("notify.telegram.token", d.Notify.Telegram.Token)
	v.SetDefault("notify.telegram.chat_id", d.Notify.Telegram.ChatID)
	v.SetDefault("notify.telegram.api_base", d.Notify.Telegram.APIBase)
	v.SetDefault("notify.rate", d.Notify.Rate)
	v.SetDefault("notify.burst", d.Notify.Burst)
}

// parseConfig converts viper config to our Config struct. Local paths are
// resolved relative to dir.
func parseConfig(v *viper.Viper, dir string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+ConfigFileName)
	}

	cfg.HostsFile = ExpandPath(cfg.HostsFile, dir)
	cfg.SSH.KnownHosts = ExpandPath(cfg.SSH.KnownHosts, "")

	return cfg, nil
}
