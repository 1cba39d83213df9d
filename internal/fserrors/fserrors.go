// Package fserrors defines the closed set of failure kinds that cross the
// RMI boundary. Every layer of the naming server signals failure as a *Error
// carrying one of these kinds so that a stub on the other end of the wire can
// reconstruct the same kind of failure the remote implementation raised,
// instead of collapsing everything to a generic transport error.
package fserrors

import "fmt"

type Kind string

const (
	NullArg            Kind = "NullArg"
	IllegalArg         Kind = "IllegalArg"
	InvalidPath        Kind = "InvalidPath"
	NotFound           Kind = "NotFound"
	AlreadyExists      Kind = "AlreadyExists"
	NotADirectory      Kind = "NotADirectory"
	AlreadyRegistered  Kind = "AlreadyRegistered"
	IllegalState       Kind = "IllegalState"
	NotRemoteInterface Kind = "NotRemoteInterface"
	NotStarted         Kind = "NotStarted"
	UnknownHost        Kind = "UnknownHost"
	RemoteError        Kind = "RemoteError"
	OutOfRange         Kind = "OutOfRange"
)

// Error is the concrete error value exchanged across the RMI boundary. Its
// Kind is preserved end to end: a stub that receives a resultFrame carrying
// an Error re-raises one with the same Kind, never a bare RemoteError,
// unless the failure genuinely occurred in the transport itself.
type Error struct {
	Kind Kind
	Msg  string
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == kind
}
