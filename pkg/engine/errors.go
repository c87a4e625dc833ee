package engine

import "fmt"

// ValidationError reports a malformed appliance or log record, like a missing
// mode-specific rating field or a negative usage value. The engine returns it
// instead of substituting a default because a silent default would misstate
// money and energy figures.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports a malformed tariff schedule. The engine refuses
// to compute against one rather than produce a misleading number.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid tariff: %s", e.Reason)
}
