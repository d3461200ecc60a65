package steps

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every step validation failure.
	ErrValidation = errors.New("invalid step")
	// ErrUnknownType matches a sensor step whose type is not registered.
	ErrUnknownType = errors.New("unknown sensor type")
)

// ValidationError explains why a step was rejected.
type ValidationError struct {
	Type    string
	Missing []string
	Reason  string
	unknown bool
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid step")
	if e.Type != "" {
		fmt.Fprintf(&b, " %q", e.Type)
	}
	if e.unknown {
		b.WriteString(": unknown sensor type")
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing required fields %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.unknown && target == ErrUnknownType)
}
