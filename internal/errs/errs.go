// Package errs defines the single discriminated error type used across
// this module, modelled on the teacher's pkg/app.CommonError.
package errs

import "fmt"

// Kind discriminates the broad category of failure a caller needs to
// branch on (retry, report missing, abort). Reference: spec.md §7.
type Kind string

const (
	KindIO             Kind = "io"
	KindNotFound       Kind = "not_found"
	KindCorrupt        Kind = "corrupt"
	KindUnsupported    Kind = "unsupported"
	KindInvalidArgument Kind = "invalid_argument"
	KindCancelled      Kind = "cancelled"
)

// Error is the error type every exported function in this module returns.
// It carries enough diagnostic context (tree, node, record) to locate the
// offending bytes without re-parsing the volume.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Diagnostic context, all optional.
	Tree   string // "catalog", "extents", "attributes", "hotfiles"
	Node   int64  // node number within Tree, or -1 if not applicable
	Record int    // record index within Node, or -1 if not applicable
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Tree != "" {
		if e.Node >= 0 {
			if e.Record >= 0 {
				msg = fmt.Sprintf("%s: %s node %d record %d", e.Tree, msg, e.Node, e.Record)
			} else {
				msg = fmt.Sprintf("%s: %s node %d", e.Tree, msg, e.Node)
			}
		} else {
			msg = fmt.Sprintf("%s: %s", e.Tree, msg)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no diagnostic context.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Node: -1, Record: -1}
}

// WithNode returns a copy of e annotated with a tree/node location, for
// errors discovered while walking a specific B-tree.
func (e *Error) WithNode(tree string, node int64) *Error {
	cp := *e
	cp.Tree = tree
	cp.Node = node
	return &cp
}

// WithRecord returns a copy of e further annotated with a record index.
func (e *Error) WithRecord(record int) *Error {
	cp := *e
	cp.Record = record
	return &cp
}

// Is reports whether err is an *Error of the given Kind, so callers can
// write `errs.Is(err, errs.KindNotFound)` instead of a type switch.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// NotFound builds a KindNotFound error.
func NotFound(message string, cause error) *Error { return New(KindNotFound, message, cause) }

// Corrupt builds a KindCorrupt error.
func Corrupt(message string, cause error) *Error { return New(KindCorrupt, message, cause) }

// Unsupported builds a KindUnsupported error.
func Unsupported(message string, cause error) *Error { return New(KindUnsupported, message, cause) }

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(message string, cause error) *Error {
	return New(KindInvalidArgument, message, cause)
}

// IO builds a KindIO error.
func IO(message string, cause error) *Error { return New(KindIO, message, cause) }

// Cancelled builds a KindCancelled error.
func Cancelled(message string, cause error) *Error { return New(KindCancelled, message, cause) }
