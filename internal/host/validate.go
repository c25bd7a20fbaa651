package host

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/nekowatch/internal/errors"
)

var validate = validator.New()

// Validate checks that a host record is complete enough to be monitored.
func Validate(h Host) error {
	if h.ID == "" {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("Host '%s' has no id", h.Name),
			"Set 'sid' or let the registry generate one from the name.")
	}

	if err := validate.Struct(h); err != nil {
		return errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("Host '%s' is invalid", h.ID),
			"Every host needs a name, an ssh.host and an api port and key.")
	}

	if h.Status.Polled() && h.AgentHost() == "" {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("Host '%s' has no address", h.ID),
			"Set ssh.host or api.host.")
	}

	return nil
}
