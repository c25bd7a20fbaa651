// Package provision installs and updates the monitoring agent on a host over
// the pooled SSH path.
package provision

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// Executor runs a command over a pooled session. *sshutil.Pool satisfies it.
type Executor interface {
	Exec(ctx context.Context, cred sshutil.Credential, cmd string) sshutil.Result
}

// Outcome is what the caller shows the operator.
type Outcome struct {
	OK      bool   `json:"status"`
	Message string `json:"data"`
}

const msgInvalid = "invalid input data"

// request is the validated subset of a host.
type request struct {
	SSHHost string `validate:"required"`
	APIKey  string `validate:"required"`
	APIPort int    `validate:"required,min=1,max=65535"`
	URL     string `validate:"required,url"`
}

// Orchestrator runs the install and update scripts.
type Orchestrator struct {
	exec     Executor
	validate *validator.Validate
	log      logger.Logger
}

func New(exec Executor, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Noop()
	}
	return &Orchestrator{exec: exec, validate: validator.New(), log: log}
}

func (o *Orchestrator) check(h host.Host, url string) error {
	req := request{SSHHost: h.SSH.Host, APIKey: h.API.Key, APIPort: h.API.Port, URL: url}
	if err := o.validate.Struct(req); err != nil {
		return errors.WrapWithCode(err, errors.ErrInput, msgInvalid, "")
	}
	return nil
}

// Install sets the agent up on h, downloading it from url.
func (o *Orchestrator) Install(ctx context.Context, h host.Host, url string) Outcome {
	if err := o.check(h, url); err != nil {
		o.log.Warn("install on %s rejected: %s", h.Name, errors.Brief(err))
		return Outcome{Message: msgInvalid}
	}
	script, err := InstallScript(url, h.API.Key, h.API.Port)
	if err != nil {
		o.log.Error("rendering install script for %s: %s", h.Name, errors.Brief(err))
		return Outcome{Message: msgInvalid}
	}
	return o.run(ctx, h, "install", script)
}

// Update replaces the agent binary on h with the one at url.
func (o *Orchestrator) Update(ctx context.Context, h host.Host, url string) Outcome {
	if err := o.check(h, url); err != nil {
		o.log.Warn("update on %s rejected: %s", h.Name, errors.Brief(err))
		return Outcome{Message: msgInvalid}
	}
	return o.run(ctx, h, "update", UpdateScript(url))
}

func (o *Orchestrator) run(ctx context.Context, h host.Host, action, script string) Outcome {
	o.log.Info("running %s on %s", action, h.Name)
	res := o.exec.Exec(ctx, h.SSH, script)
	if !res.Success {
		o.log.Error("%s on %s failed: %s", action, h.Name, res.Data)
		return Outcome{Message: action + " failed: SSH connection failed"}
	}
	if res.ExitCode != 0 {
		o.log.Warn("%s on %s exited %d", action, h.Name, res.ExitCode)
		return Outcome{Message: fmt.Sprintf("%s failed: script exited with code %d", action, res.ExitCode)}
	}
	return Outcome{OK: true, Message: action + " succeeded"}
}
