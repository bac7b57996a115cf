// Package kinerr defines the error taxonomy shared by the meshing kinematics
// packages. Every failure carries a Kind so the tool boundary can turn it into
// a structured value instead of an opaque message.
package kinerr

import (
	"errors"
	"fmt"
	"math"
)

// Kind classifies a kinematics failure.
type Kind int

const (
	KindUnknown                  Kind = iota
	KindInvalidParameter              // non-positive module/teeth, non-finite rates
	KindAmbiguousMotion               // translation vs rotation roles cannot be told apart
	KindDegenerateLinkage             // rotation delta too small to invert
	KindUnsupportedConfiguration      // e.g. rack-rack meshing
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindAmbiguousMotion:
		return "AmbiguousMotion"
	case KindDegenerateLinkage:
		return "DegenerateLinkage"
	case KindUnsupportedConfiguration:
		return "UnsupportedConfiguration"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidParameter         = &Error{Kind: KindInvalidParameter}
	ErrAmbiguousMotion          = &Error{Kind: KindAmbiguousMotion}
	ErrDegenerateLinkage        = &Error{Kind: KindDegenerateLinkage}
	ErrUnsupportedConfiguration = &Error{Kind: KindUnsupportedConfiguration}
)

// Error is a classified kinematics failure. Field names the offending input
// when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is an *Error of the same kind. Field and message
// are ignored so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Invalid returns an InvalidParameter error for field.
func Invalid(field, format string, args ...any) *Error {
	return New(KindInvalidParameter, field, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldOf returns the offending field recorded in err's chain, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// RequirePositive checks that v is a positive finite number.
func RequirePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(field, "must be finite, got %v", v)
	}
	if v <= 0 {
		return Invalid(field, "must be positive, got %v", v)
	}
	return nil
}

// RequireFinite checks that v is neither NaN nor infinite.
func RequireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(field, "must be finite, got %v", v)
	}
	return nil
}
