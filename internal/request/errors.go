package request

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedScheme is returned in strict mode for schemes dispatch
	// does not encrypt.
	ErrUnsupportedScheme = errors.New("unsupported crypto scheme")
	// ErrInvalidURL is returned when the target URL does not parse.
	ErrInvalidURL = errors.New("invalid request url")
)

// MissingParameterError reports data a call must supply but did not.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// Missing is shorthand for a *MissingParameterError.
func Missing(name string) error {
	return &MissingParameterError{Name: name}
}
