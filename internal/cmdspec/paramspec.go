// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package cmdspec provides the declarative parameter model shared by the command
// engine, the completion subsystem and the help renderer.
package cmdspec

// ParamKind describes how a parameter is supplied on the command line.
type ParamKind int

const (
	// Main is the positional parameter. At most one per command; it may also be
	// given as name=value.
	Main ParamKind = iota
	// Required is a named parameter the command fails without.
	Required
	// Optional is a named parameter that may be absent.
	Optional
	// Deferred is a required named secret. Its value never reaches traces,
	// error messages or the history file.
	Deferred
	// OptionalDeferred is an optional named secret.
	OptionalDeferred
)

func (k ParamKind) String() string {
	switch k {
	case Main:
		return "main"
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Deferred:
		return "deferred"
	case OptionalDeferred:
		return "optional deferred"
	default:
		return "unknown"
	}
}

// IsSecret reports whether values of this kind must be redacted.
func (k ParamKind) IsSecret() bool {
	return k == Deferred || k == OptionalDeferred
}

// Completion is the closed set of dynamic completion sources.
type Completion int

const (
	CompletionNone     Completion = iota
	CompletionIdentity            // identities held by the opened store
	CompletionStore               // attached store configurations
	CompletionNetwork             // configured network records
)

func (c Completion) String() string {
	switch c {
	case CompletionIdentity:
		return "identity"
	case CompletionStore:
		return "store"
	case CompletionNetwork:
		return "network"
	default:
		return "none"
	}
}

// ParamSpec declares a single command parameter.
type ParamSpec struct {
	Name       string
	Kind       ParamKind
	Help       string
	Completion Completion
	// Optional is only meaningful for Main params: an optional main param may
	// be omitted entirely.
	Optional bool
}

// IsRequired reports whether the parameter must be present after parsing.
func (p ParamSpec) IsRequired() bool {
	switch p.Kind {
	case Main:
		return !p.Optional
	case Required, Deferred:
		return true
	default:
		return false
	}
}
