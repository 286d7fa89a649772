package env

import (
	"fmt"
	"strings"
)

// Environment gates what the relay may run with. Production refuses the
// in-memory ledger and bus.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Parse accepts the environment names case-insensitively. A typo such as
// "prod" is an error rather than a silent development deploy.
func Parse(s string) (Environment, error) {
	switch e := Environment(strings.ToLower(strings.TrimSpace(s))); e {
	case Development, Production:
		return e, nil
	default:
		return "", fmt.Errorf("unknown environment %q: want %q or %q", s, Development, Production)
	}
}

// UnmarshalText lets env-tagged config fields reject unknown environments.
func (e *Environment) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e Environment) IsProduction() bool { return e == Production }
