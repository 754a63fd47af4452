// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"errors"
	"fmt"
)

// ErrReported is returned by handlers that already printed their own
// diagnostic. The shell does not print anything further for it.
var ErrReported = errors.New("already reported")

// ValidationKind classifies parameter validation failures.
type ValidationKind int

const (
	MissingRequiredParam ValidationKind = iota
	EmptyParam
	UnknownParam
	UnexpectedPositionalArgument
	DuplicateParam
	MissingValue
	InvalidBoolean
	InvalidNumber
	InvalidNumberList
	InvalidObject
	InvalidIdentity
)

func (k ValidationKind) String() string {
	switch k {
	case MissingRequiredParam:
		return "MissingRequiredParam"
	case EmptyParam:
		return "EmptyParam"
	case UnknownParam:
		return "UnknownParam"
	case UnexpectedPositionalArgument:
		return "UnexpectedPositionalArgument"
	case DuplicateParam:
		return "DuplicateParam"
	case MissingValue:
		return "MissingValue"
	case InvalidBoolean:
		return "InvalidBoolean"
	case InvalidNumber:
		return "InvalidNumber"
	case InvalidNumberList:
		return "InvalidNumberList"
	case InvalidObject:
		return "InvalidObject"
	case InvalidIdentity:
		return "InvalidIdentity"
	default:
		return "Unknown"
	}
}

// ValidationError reports a malformed, missing or unknown parameter.
// Value is already redacted for deferred parameters.
type ValidationError struct {
	Kind    ValidationKind
	Param   string
	Value   string
	Command string
	Detail  string
}

func (e *ValidationError) Error() string {
	var msg string
	switch e.Kind {
	case MissingRequiredParam:
		msg = fmt.Sprintf("No required %q parameter present", e.Param)
	case EmptyParam:
		msg = fmt.Sprintf("Required %q parameter is empty", e.Param)
	case UnknownParam:
		msg = fmt.Sprintf("Unknown parameter %q", e.Param)
	case UnexpectedPositionalArgument:
		msg = "Unexpected positional argument"
		if e.Command != "" {
			msg = fmt.Sprintf("Command %q does not accept a positional argument here", e.Command)
		}
	case DuplicateParam:
		msg = fmt.Sprintf("Parameter %q is given more than once", e.Param)
	case MissingValue:
		msg = fmt.Sprintf("No value provided for %q parameter", e.Param)
	case InvalidBoolean:
		msg = fmt.Sprintf("Can't parse bool parameter %q: value %q (expected true or false)", e.Param, e.Value)
	case InvalidNumber:
		msg = fmt.Sprintf("Can't parse number parameter %q: value %q", e.Param, e.Value)
	case InvalidNumberList:
		msg = fmt.Sprintf("Parameter %q has invalid number list format", e.Param)
	case InvalidObject:
		msg = fmt.Sprintf("Can't parse object parameter %q", e.Param)
	case InvalidIdentity:
		msg = fmt.Sprintf("Invalid DID %q provided for %q", e.Value, e.Param)
	default:
		msg = fmt.Sprintf("Invalid parameter %q", e.Param)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsValidationKind reports whether err is a ValidationError of the given kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Kind == kind
}

// PreconditionError reports missing session state (store, network, identity).
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// ResolutionError reports input that does not name a registered command.
type ResolutionError struct {
	Input string
	Msg   string
}

func (e *ResolutionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("Command not found: %q. Type 'help' for available commands", e.Input)
}
