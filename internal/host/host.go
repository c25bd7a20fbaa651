// Package host models monitored hosts and the registries they are read from.
package host

import (
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// Status is the monitoring state of a host.
type Status int

const (
	// StatusDisabled hosts are neither polled nor listed.
	StatusDisabled Status = 0
	// StatusActive hosts are polled and publicly listed.
	StatusActive Status = 1
	// StatusHidden hosts are polled and reachable by id but not listed.
	StatusHidden Status = 2
)

// Polled reports whether hosts with this status are monitored.
func (s Status) Polled() bool { return s > 0 }

// Listed reports whether hosts with this status appear in the public listing.
func (s Status) Listed() bool { return s == StatusActive }

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusActive:
		return "active"
	case StatusHidden:
		return "hidden"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// APIEndpoint locates a host's monitoring agent. An empty Host means the
// agent listens on the SSH host.
type APIEndpoint struct {
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	Port int    `yaml:"port" json:"port" validate:"required,gt=0,lte=65535"`
	Key  string `yaml:"key" json:"key" validate:"required"`
}

// Host is a monitored machine. It is read-only to the monitoring core.
type Host struct {
	ID     string             `yaml:"sid" json:"sid"`
	Name   string             `yaml:"name" json:"name" validate:"required"`
	Status Status             `yaml:"status" json:"status" validate:"gte=0,lte=2"`
	Top    int                `yaml:"top" json:"top"`
	SSH    sshutil.Credential `yaml:"ssh" json:"ssh"`
	API    APIEndpoint        `yaml:"api" json:"api"`

	// Device, when set, names the network interface whose counters replace
	// the agent's aggregate totals.
	Device string `yaml:"device,omitempty" json:"device,omitempty"`
}

// AgentHost returns the hostname the agent is reached at.
func (h Host) AgentHost() string {
	if h.API.Host != "" {
		return h.API.Host
	}
	return h.SSH.Host
}

// AgentURL returns the agent's stat endpoint.
func (h Host) AgentURL() string {
	return fmt.Sprintf("http://%s/stat", net.JoinHostPort(h.AgentHost(), strconv.Itoa(h.API.Port)))
}

// idNamespace scopes generated host ids.
var idNamespace = uuid.MustParse("6f2b6c1e-4c2e-4b8e-9a57-6e656b6f7761")

// GenerateID derives a stable id from a host name so that registry rows
// without an explicit id keep the same id across reloads.
func GenerateID(name string) string {
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
