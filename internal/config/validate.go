package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/nekowatch/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if err := validate.Struct(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			describeValidation(err),
			"Check "+ConfigFileName+" against the documented keys.")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown timezone '%s'", cfg.Timezone),
			"Use an IANA zone name like 'Asia/Shanghai' or 'UTC'.")
	}

	if cfg.Database.DSN == "" && cfg.HostsFile == "" {
		return errors.New(errors.ErrConfig,
			"No host registry configured",
			"Set either 'database.dsn' or 'hosts_file'.")
	}

	if cfg.Poll.Timeout < cfg.Poll.Interval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("poll.timeout (%s) is shorter than poll.interval (%s)", cfg.Poll.Timeout, cfg.Poll.Interval),
			"Fetches would be cut off before the next tick; raise poll.timeout.")
	}

	return nil
}

// describeValidation turns validator output into one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s fails '%s'", field, fe.Tag()))
		}
	}
	return "Invalid config: " + strings.Join(parts, ", ")
}
