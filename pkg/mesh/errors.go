package mesh

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of mesh construction and boolean
// evaluation.
type ErrorKind int

const (
	// KindNonManifoldInput: an edge is used by more than two faces, or by two
	// faces that traverse it in the same direction.
	KindNonManifoldInput ErrorKind = iota + 1
	// KindOpenSurface: an edge is used by exactly one face.
	KindOpenSurface
	// KindDegenerateFace: a face loop is too short, repeats or misses a
	// vertex, has no area, is not planar or crosses itself.
	KindDegenerateFace
	// KindNumericAmbiguity: a geometric decision could not be resolved.
	KindNumericAmbiguity
	// KindNonManifoldResult: the output of a boolean failed validation.
	KindNonManifoldResult
)

var kindNames = map[ErrorKind]string{
	KindNonManifoldInput:  "non-manifold input",
	KindOpenSurface:       "open surface",
	KindDegenerateFace:    "degenerate face",
	KindNumericAmbiguity:  "numeric ambiguity",
	KindNonManifoldResult: "non-manifold result",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the typed error returned by Build and by the boolean engine.
type Error struct {
	Kind   ErrorKind
	Op     string // stage that failed, e.g. "build", "classify"
	Detail string // human-readable location of the problem
	Err    error  // underlying cause, if any
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNonManifoldInput  = &Error{Kind: KindNonManifoldInput}
	ErrOpenSurface       = &Error{Kind: KindOpenSurface}
	ErrDegenerateFace    = &Error{Kind: KindDegenerateFace}
	ErrNumericAmbiguity  = &Error{Kind: KindNumericAmbiguity}
	ErrNonManifoldResult = &Error{Kind: KindNonManifoldResult}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "carve: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Sentinels carry
// only a kind and so match every error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind, true
	}
	return 0, false
}

func errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}
