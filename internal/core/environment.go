package core

import "strings"

// Environment selects runtime behavior such as log formatting and level.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string { return string(e) }

// IsProduction reports whether the service runs with production settings.
func (e Environment) IsProduction() bool { return e == Production }

// ParseEnvironment maps a raw config value onto a known environment. Matching
// is case-insensitive; anything unrecognized runs as Development.
func ParseEnvironment(v string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(v))) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}
