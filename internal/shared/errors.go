package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrAuthDenied       = fmt.Errorf("authorization denied")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrInvalidToken     = fmt.Errorf("invalid token file")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Callback errors
	ErrValidation    = fmt.Errorf("invalid callback parameters")
	ErrStateMismatch = fmt.Errorf("state parameter mismatch")

	// Relay and bus errors
	ErrExternalCall  = fmt.Errorf("external API call failed")
	ErrShapeMismatch = fmt.Errorf("unexpected payload shape")
	ErrBusClosed     = fmt.Errorf("message bus closed")

	// Persistence errors
	ErrNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
