package control

import (
	"errors"
	"fmt"
	"strings"

	"go.apnode.dev/apnode/pkg/util/validation"
)

// DefaultConfig is the default configuration for the Config.
var DefaultConfig = Config{
	Bind: "0.0.0.0:2244",
}

// Config is the configuration for the control server.
type Config struct {
	// Bind is the address to bind the control server to.
	// The server has no authentication, bind it to the access point network only.
	Bind string `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// Validate validates the control server configuration.
func (c Config) Validate() (warns []error, errs []error) {
	if strings.TrimSpace(c.Bind) == "" {
		return nil, []error{errors.New("bind address must not be empty")}
	}
	if err := validation.ValidHostPort(c.Bind); err != nil {
		return nil, []error{fmt.Errorf("invalid bind %q: %v", c.Bind, err)}
	}
	return nil, nil
}
