package gate

import "fmt"

// Denial reasons
const (
	ReasonCooldown   = "cooldown"
	ReasonQuota      = "quota"
	ReasonMembership = "membership"
)

// DeniedError reports that a gate refused a request. It is expected
// behaviour and is never logged as an error.
type DeniedError struct {
	Reason  string
	Message string
}

// NewDeniedError creates a new gate denial
func NewDeniedError(reason, message string) *DeniedError {
	return &DeniedError{
		Reason:  reason,
		Message: message,
	}
}

// Error implements the error interface
func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied (%s): %s", e.Reason, e.Message)
}
