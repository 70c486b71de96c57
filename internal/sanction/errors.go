package sanction

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("offense tier not found")
	ErrConflict            = errors.New("offense number already in use")
	ErrNotListed           = errors.New("student is not on the sanction list")
	ErrRecomputeInProgress = errors.New("sanction recompute already in progress")
)

// ConfigurationError reports malformed tier data. It is surfaced to the
// admin as is; nothing is corrected automatically.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid offense tier: %s: %s", e.Field, e.Message)
}

// LookupError reports an event whose attendance could not be read during a
// recompute. The whole run is abandoned when one occurs.
type LookupError struct {
	EventID   string
	EventName string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("attendance lookup for event %q failed: %v", e.EventName, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
