package domain

import (
	"errors"
	"fmt"
)

// InputError reports an invalid holding or request parameter. It is the
// only failure class the pipeline surfaces to callers; everything else is
// logged and absorbed by a documented fallback.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
