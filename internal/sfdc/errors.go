package sfdc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the remote error classes the orchestration core
// reacts to. Everything else passes through unclassified.
var (
	ErrInvalidLogin   = errors.New("invalid username, password or security token")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrDuplicateValue = errors.New("duplicate value")
	ErrNotFound       = errors.New("not found")
)

// Salesforce error codes the core classifies
const (
	codeInvalidLogin    = "INVALID_LOGIN"
	codeInvalidPassword = "INVALID_PASSWORD"
	codeInvalidSession  = "INVALID_SESSION_ID"
	codeDuplicateValue  = "DUPLICATE_VALUE"
	codeNotFound        = "NOT_FOUND"
)

// apiError is one entry of a REST error response body.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// classify maps a Salesforce error code onto a sentinel, preserving the
// remote message.
func classify(code, message string) error {
	switch code {
	case codeInvalidLogin, codeInvalidPassword:
		return fmt.Errorf("%w: %s", ErrInvalidLogin, message)
	case codeInvalidSession:
		return fmt.Errorf("%w: %s", ErrSessionExpired, message)
	case codeDuplicateValue:
		return fmt.Errorf("%w: %s", ErrDuplicateValue, message)
	case codeNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	default:
		return fmt.Errorf("%s: %s", code, message)
	}
}
