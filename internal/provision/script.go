package provision

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/nekowatch/internal/util"
	"gopkg.in/yaml.v3"
)

// Fixed locations of the agent on a provisioned host.
const (
	AgentBinary = "/usr/bin/neko-status"
	AgentConfig = "/etc/neko-status/config.yaml"
	ServiceName = "nekonekostatus"
	UnitPath    = "/etc/systemd/system/" + ServiceName + ".service"
)

// agentConfig is the agent's YAML config file.
type agentConfig struct {
	Key   string `yaml:"key"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

const unitTemplate = `[Unit]
Description=%s

[Service]
Restart=always
RestartSec=5
ExecStart=%s -c %s

[Install]
WantedBy=multi-user.target
`

func renderConfig(key string, port int) (string, error) {
	out, err := yaml.Marshal(agentConfig{Key: key, Port: port})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func renderUnit() string {
	return fmt.Sprintf(unitTemplate, ServiceName, AgentBinary, AgentConfig)
}

// writeFile is a shell line that writes content verbatim to path.
func writeFile(content, path string) string {
	return fmt.Sprintf("printf '%%s' %s > %s", util.ShellQuote(content), path)
}

// InstallScript is the idempotent install sequence: ensure wget, download
// the agent if missing, write its config and systemd unit, then start and
// enable the service.
func InstallScript(url, key string, port int) (string, error) {
	cfg, err := renderConfig(key, port)
	if err != nil {
		return "", err
	}
	q := util.ShellQuote(url)

	lines := []string{
		"wget --version >/dev/null 2>&1 || yum install wget -y || apt-get install wget -y",
		fmt.Sprintf("%s -v >/dev/null 2>&1 || (wget -q %s -O %s && chmod +x %s)", AgentBinary, q, AgentBinary, AgentBinary),
		"systemctl stop " + ServiceName,
		"mkdir -p /etc/neko-status/",
		writeFile(cfg, AgentConfig),
		writeFile(renderUnit(), UnitPath),
		"systemctl daemon-reload",
		"systemctl start " + ServiceName,
		"systemctl enable " + ServiceName,
	}
	return strings.Join(lines, "\n"), nil
}

// UpdateScript replaces the agent binary and restarts the service.
func UpdateScript(url string) string {
	lines := []string{
		"rm -f " + AgentBinary,
		fmt.Sprintf("wget -q %s -O %s", util.ShellQuote(url), AgentBinary),
		"chmod +x " + AgentBinary,
		"systemctl restart " + ServiceName,
	}
	return strings.Join(lines, "\n")
}
