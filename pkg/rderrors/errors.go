// Package rderrors names the error taxonomy the engine and fixpoint
// driver classify failures into (§7): most kinds are recoverable and are
// only logged, one (InvalidAnalysisTarget) fails construction outright,
// and one (EngineFailure) is recoverable unless the caller opted into
// fail-fast mode.
package rderrors

import "github.com/pkg/errors"

// Kind tags the taxonomy an error belongs to.
type Kind int

const (
	// UnsupportedIR: a statement or expression variant has no handler.
	// Logged at error level; the engine returns the lattice top and
	// keeps going.
	UnsupportedIR Kind = iota
	// TypeMismatch: an operator saw an incompatible combination of
	// DataSet members. Handled inline by rdvalue.DataSet.BinOp/cmpOp —
	// this Kind exists for completeness and for callers logging it
	// themselves.
	TypeMismatch
	// UndefinedMemoryAddress: an address expression evaluated to
	// Undefined. Logged at info level; that address is skipped.
	UndefinedMemoryAddress
	// MissingHandler: no FunctionHandler was configured for a call
	// target that needed one. Logged at warning level; state is left
	// unchanged.
	MissingHandler
	// InvalidAnalysisTarget: the analysis target was both or neither of
	// a function and a single block. Fails construction.
	InvalidAnalysisTarget
	// EngineFailure: the underlying IR representation raised an error
	// the engine could not classify. Swallowed unless FailFast is set.
	EngineFailure
	// RecursionLimit: a call hook's current depth exceeded the
	// configured maximum. Logged at warning level; the hook returns
	// without descending further.
	RecursionLimit
)

func (k Kind) String() string {
	switch k {
	case UnsupportedIR:
		return "UnsupportedIR"
	case TypeMismatch:
		return "TypeMismatch"
	case UndefinedMemoryAddress:
		return "UndefinedMemoryAddress"
	case MissingHandler:
		return "MissingHandler"
	case InvalidAnalysisTarget:
		return "InvalidAnalysisTarget"
	case EngineFailure:
		return "EngineFailure"
	case RecursionLimit:
		return "RecursionLimit"
	default:
		return "Unknown"
	}
}

// Error wraps a classified failure with the Kind it belongs to, so
// callers can decide policy (log-and-continue vs abort) with a type
// switch or errors.As rather than string matching.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return errors.Wrap(e.cause, e.Message).Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Recoverable reports whether policy for this Kind is to log and
// continue rather than abort the whole analysis. Only InvalidAnalysisTarget
// is never recoverable; EngineFailure's recoverability further depends on
// the caller's fail-fast setting, checked separately by callers.
func (e *Error) Recoverable() bool { return e.Kind != InvalidAnalysisTarget }
