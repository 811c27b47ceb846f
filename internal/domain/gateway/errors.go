// internal/domain/gateway/errors.go
package gateway

import (
	"errors"
	"fmt"
)

// AuthorizationError means the user declined or revoked the gateway's
// permission. Recoverable by directing the user to the channel's settings;
// non-fatal to any cycle operation.
type AuthorizationError struct {
	Gateway string
	Err     error
}

func (e *AuthorizationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s gateway: access not granted", e.Gateway)
	}
	return fmt.Sprintf("%s gateway: access not granted: %v", e.Gateway, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// OperationError is a transient gateway failure. Logged and reported,
// non-fatal to any cycle operation.
type OperationError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s gateway: %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsAuthorization reports whether err is, or wraps, an AuthorizationError.
func IsAuthorization(err error) bool {
	var authErr *AuthorizationError
	return errors.As(err, &authErr)
}
