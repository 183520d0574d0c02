// Package xerrors defines the structured errors surfaced to callers of the
// generator. Every error names the offending qualified type and carries a
// templated human-readable message.
package xerrors

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	// InvalidTarget reports a malformed processed class.
	InvalidTarget Kind = iota + 1
	// InvalidAdapter reports a malformed pluggable adapter.
	InvalidAdapter
)

func (k Kind) String() string {
	switch k {
	case InvalidTarget:
		return "invalid target"
	case InvalidAdapter:
		return "invalid adapter"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	ErrInvalidTarget  = errors.New("invalid target")
	ErrInvalidAdapter = errors.New("invalid adapter")
)

// Message templates.
const (
	MsgGenericClass          = "generic classes are not supported"
	MsgDisallowedKind        = "%s cannot be processed, only concrete classes and objects are supported"
	MsgUnsupportedModel      = "only data classes and objects are supported"
	MsgIdentityField         = "class must not declare a CREATOR field"
	MsgNoPrimaryConstructor  = "class has no primary constructor"
	MsgAmbiguousConstructor  = "class has %d candidate primary constructors"
	MsgConstructorNotPublic  = "primary constructor must be public"
	MsgUnmatchedParameter    = "constructor parameter %q has no matching property"
	MsgGetterNotPublic       = "property %q has no public getter"
	MsgUnsupportedType       = "property %q has unsupported type %s"
	MsgArity                 = "property %q: %s must have exactly %d type arguments"
	MsgSparseArgument        = "property %q: %s must have exactly one raw type argument"
	MsgDuplicateLocalAdapter = "local adapters %s and %s both handle %s"
	MsgUnknownClass          = "class %s is not part of the class universe"

	MsgNotAnAdapter     = "adapter must implement %s"
	MsgAdapterNotPublic = "adapter must be public"
	MsgAdapterAbstract  = "adapter must be a concrete class"
	MsgAdapterGeneric   = "adapter must not declare type parameters"
	MsgAdapterNoType    = "unable to extract the assisted type, no generic information is available"
	MsgAdapterNoCtor    = "adapter must have a public no-arg constructor or be an object"
	MsgAdapterCompanion = "companion objects cannot be used as adapters"
	MsgDuplicateGlobal  = "global adapters %s and %s both handle %s"
)

// Error is a static-analysis error produced while resolving a class or an
// adapter. It never wraps an underlying cause: the inputs are immutable and
// the message is the whole diagnostic.
type Error struct {
	Kind Kind
	Type string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Msg)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidTarget:
		return e.Kind == InvalidTarget
	case ErrInvalidAdapter:
		return e.Kind == InvalidAdapter
	}
	return false
}

func Target(typ, format string, args ...any) *Error {
	return &Error{Kind: InvalidTarget, Type: typ, Msg: fmt.Sprintf(format, args...)}
}

func Adapter(typ, format string, args ...any) *Error {
	return &Error{Kind: InvalidAdapter, Type: typ, Msg: fmt.Sprintf(format, args...)}
}

// TypeOf returns the qualified type name carried by err, if any.
func TypeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return "", false
}
