package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying failures for exit-code mapping. Configuration
// problems (missing snapshot database, absent credentials) abort with exit
// code 2; connection failures against a configured live server abort with 3.
// Scoped failures cover one account or one library section and never abort a
// run: the failing scope contributes nothing and processing continues.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnection    = errors.New("connection error")
	ErrScoped        = errors.New("scoped query failure")
)

// Wrap tags an error with one of the sentinel markers above plus operation
// context.
func Wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "backend operation"
	}
	if marker == nil {
		marker = ErrScoped
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
	return fmt.Errorf("%w: %s", marker, operation)
}
