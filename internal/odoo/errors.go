package odoo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthFailed means the remote endpoint rejected the configured credentials,
// or rejected a call again right after a fresh login.
var ErrAuthFailed = errors.New("odoo: authentication failed")

// Fault codes of the /xmlrpc/2 endpoints.
const (
	FaultApplication  = 1
	FaultWarning      = 2
	FaultAccessDenied = 3
	FaultAccessError  = 4
)

// Fault is an XML-RPC fault returned by the remote endpoint.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("odoo: fault %d: %s", f.Code, f.String)
}

// CallError wraps every non-auth failure of a remote call: transport errors,
// faults and undecodable responses.
type CallError struct {
	Service string
	Model   string
	Method  string
	Err     error
}

func (e *CallError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("odoo: %s.%s: %v", e.Service, e.Method, e.Err)
	}
	return fmt.Sprintf("odoo: %s %s.%s: %v", e.Service, e.Model, e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// isAuthFailure recognises the responses Odoo gives for bad or stale
// credentials.
func isAuthFailure(err error) bool {
	var fault *Fault
	if !errors.As(err, &fault) {
		return false
	}
	if fault.Code == FaultAccessDenied {
		return true
	}
	msg := strings.ToLower(fault.String)
	return strings.Contains(msg, "accessdenied") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "session expired")
}
