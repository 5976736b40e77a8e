// Package action supplies the runtime contract the rewritten code runs
// against: the flash scope, the request-parameter container with name-list
// filtering, and the capability interface resolving the late-bound message
// and redirect operations. It also provides an interpreter that executes an
// action body against that contract.
package action

import "fmt"

// Params is the ambient request-parameter container
type Params map[string]any

// SubMap filters the container by name list. The result contains exactly one
// entry per requested name, in insertion terms: names absent from the source
// map to a nil value rather than being omitted. Duplicate names collapse to
// one entry.
func (p Params) SubMap(names []string) Params {
	result := make(Params, len(names))
	for _, name := range names {
		result[name] = p[name]
	}
	return result
}

// Flash is the short-lived, request-bound message location
type Flash struct {
	Message any
}

// Context is the capability surface the generated recovery body is
// parameterized over. Implementations are supplied by the surrounding
// execution environment; tests supply fakes.
type Context interface {
	// LookupMessage resolves a message, called with {code: <messageCode>}
	LookupMessage(args map[string]any) any

	// RedirectTo hands control to a named alternate action, called with
	// {action: <name>, params: <filtered params>}
	RedirectTo(args map[string]any) error

	// FilterParams filters the ambient request parameters by name list
	// with SubMap semantics
	FilterParams(names []string) Params

	// RequestParams returns the ambient request parameters
	RequestParams() Params

	// FlashScope returns the writable flash scope
	FlashScope() *Flash
}

// Lookup resolves a name against locals first, then the ambient request
// parameters. Generated action code uses it for identifier reads.
func Lookup(locals map[string]any, ctx Context, name string) any {
	if value, ok := locals[name]; ok {
		return value
	}
	return ctx.RequestParams()[name]
}

// StaleWriteError is the designated failure condition: the stored version of
// a persistent instance moved past the version the action observed.
type StaleWriteError struct {
	Reason string
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write: %s", e.Reason)
}

// RaisedError carries any other failure kind raised by an action body.
// It is never intercepted by a guarded block.
type RaisedError struct {
	Kind    string
	Message string
}

func (e *RaisedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
