package config

import "time"

// Config represents the complete nekowatch.yaml configuration file.
type Config struct {
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen" mapstructure:"listen" validate:"required"`

	// Timezone is the IANA zone used for wall-clock jobs and notification timestamps.
	Timezone string `yaml:"timezone" mapstructure:"timezone" validate:"required"`

	// HostsFile is the YAML host registry used when no database is configured.
	HostsFile string `yaml:"hosts_file" mapstructure:"hosts_file"`

	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Poll     PollConfig     `yaml:"poll" mapstructure:"poll"`
	Traffic  TrafficConfig  `yaml:"traffic" mapstructure:"traffic"`
	SSH      SSHConfig      `yaml:"ssh" mapstructure:"ssh"`
	Agent    AgentConfig    `yaml:"agent" mapstructure:"agent"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`
}

// DatabaseConfig selects the durable store. An empty DSN keeps everything in
// memory and reads hosts from HostsFile.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// PollConfig controls agent polling.
type PollConfig struct {
	// Interval between poll ticks.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`

	// Timeout bounds a single agent fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// DownThreshold is the failure count a host must exceed before it is marked down.
	DownThreshold int `yaml:"down_threshold" mapstructure:"down_threshold" validate:"gte=0"`
}

// TrafficConfig controls the traffic counter accumulator.
type TrafficConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
}

// SSHConfig controls outbound SSH sessions.
type SSHConfig struct {
	ConnectTimeout        time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gt=0"`
	StrictHostKeyChecking bool          `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
	KnownHosts            string        `yaml:"known_hosts" mapstructure:"known_hosts"`
}

// AgentConfig describes where the monitoring agent binary is downloaded from.
type AgentConfig struct {
	DownloadURL string `yaml:"download_url" mapstructure:"download_url" validate:"omitempty,url"`
}

// NotifyConfig configures the notification sink.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`

	// Rate is the sustained messages per second; Burst the bucket size.
	Rate  float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"`
	Burst int     `yaml:"burst" mapstructure:"burst" validate:"gte=1"`
}

// TelegramConfig holds Telegram bot credentials. Notifications go to the log
// only when Token is empty.
type TelegramConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	ChatID  string `yaml:"chat_id" mapstructure:"chat_id" validate:"required_with=Token"`
	APIBase string `yaml:"api_base" mapstructure:"api_base" validate:"omitempty,url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":5555",
		Timezone:  "Local",
		HostsFile: "hosts.yaml",
		Log:       LogConfig{Level: "info"},
		Poll: PollConfig{
			Interval:      1500 * time.Millisecond,
			Timeout:       15 * time.Second,
			DownThreshold: 10,
		},
		Traffic: TrafficConfig{Interval: 30 * time.Second},
		SSH: SSHConfig{
			ConnectTimeout: 10 * time.Second,
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
			Rate:     1,
			Burst:    5,
		},
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
