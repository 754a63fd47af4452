// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aplane-algo/apledger/internal/cmdspec"
)

// RedactedPlaceholder replaces deferred parameter values in every rendering.
const RedactedPlaceholder = "_"

const maxRangeLen = 10000

// Params holds the raw values of one command invocation, keyed by parameter
// name. Values are coerced on demand by the typed accessors.
type Params struct {
	command string
	values  map[string]string
	secret  map[string]bool
}

// NewParams creates an empty parameter set for the command described by meta.
// meta may be nil for ad-hoc sets; nothing is then treated as secret.
func NewParams(meta *cmdspec.Metadata) *Params {
	p := &Params{
		values: make(map[string]string),
		secret: make(map[string]bool),
	}
	if meta != nil {
		p.command = meta.Name()
		for _, name := range meta.SecretNames() {
			p.secret[name] = true
		}
	}
	return p
}

// Set stores a raw value.
func (p *Params) Set(name, value string) {
	p.values[name] = value
}

// Get returns the raw value and whether it is present.
func (p *Params) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name is present.
func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Len returns the number of parameters present.
func (p *Params) Len() int {
	return len(p.values)
}

// Names returns the present parameter names, sorted.
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Params) invalid(kind ValidationKind, name, value, detail string) *ValidationError {
	if p.secret[name] {
		value = RedactedPlaceholder
		detail = ""
	}
	return &ValidationError{Kind: kind, Param: name, Value: value, Command: p.command, Detail: detail}
}

// GetString returns a required, non-empty string.
func (p *Params) GetString(name string) (string, error) {
	v, ok := p.values[name]
	if !ok {
		return "", p.invalid(MissingRequiredParam, name, "", "")
	}
	if v == "" {
		return "", p.invalid(EmptyParam, name, "", "")
	}
	return v, nil
}

// GetOptString returns an optional string. Present but empty is an error.
func (p *Params) GetOptString(name string) (string, bool, error) {
	v, ok := p.values[name]
	if !ok {
		return "", false, nil
	}
	if v == "" {
		return "", false, p.invalid(EmptyParam, name, "", "")
	}
	return v, true, nil
}

// GetOptEmptyString returns an optional string that may be empty.
func (p *Params) GetOptEmptyString(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p *Params) parseBool(name, v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, p.invalid(InvalidBoolean, name, v, "")
	}
}

// GetBool returns a required boolean ("true"/"false", case-insensitive).
func (p *Params) GetBool(name string) (bool, error) {
	v, ok := p.values[name]
	if !ok {
		return false, p.invalid(MissingRequiredParam, name, "", "")
	}
	return p.parseBool(name, v)
}

// GetOptBool returns an optional boolean and whether it was present.
func (p *Params) GetOptBool(name string) (bool, bool, error) {
	v, ok := p.values[name]
	if !ok {
		return false, false, nil
	}
	b, err := p.parseBool(name, v)
	if err != nil {
		return false, false, err
	}
	return b, true, nil
}

// GetInt returns a required base-10 signed integer.
func (p *Params) GetInt(name string) (int64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, p.invalid(MissingRequiredParam, name, "", "")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, p.invalid(InvalidNumber, name, v, "")
	}
	return n, nil
}

// GetOptInt returns an optional base-10 signed integer.
func (p *Params) GetOptInt(name string) (int64, bool, error) {
	if !p.Has(name) {
		return 0, false, nil
	}
	n, err := p.GetInt(name)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// GetUint returns a required base-10 unsigned integer.
func (p *Params) GetUint(name string) (uint64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, p.invalid(MissingRequiredParam, name, "", "")
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, p.invalid(InvalidNumber, name, v, "")
	}
	return n, nil
}

// GetOptUint returns an optional base-10 unsigned integer.
func (p *Params) GetOptUint(name string) (uint64, bool, error) {
	if !p.Has(name) {
		return 0, false, nil
	}
	n, err := p.GetUint(name)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// GetNumberList parses a comma-separated list of unsigned integers. Elements
// may be inclusive ranges such as "3-5".
func (p *Params) GetNumberList(name string) ([]uint64, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, p.invalid(MissingRequiredParam, name, "", "")
	}
	var out []uint64
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(item, "-")
		if !isRange {
			n, err := strconv.ParseUint(item, 10, 64)
			if err != nil {
				return nil, p.invalid(InvalidNumber, name, item, "")
			}
			out = append(out, n)
			continue
		}
		from, err := strconv.ParseUint(lo, 10, 64)
		if err != nil {
			return nil, p.invalid(InvalidNumber, name, item, "")
		}
		to, err := strconv.ParseUint(hi, 10, 64)
		if err != nil || to < from {
			return nil, p.invalid(InvalidNumber, name, item, "")
		}
		if to-from >= maxRangeLen {
			return nil, p.invalid(InvalidNumberList, name, v, "range too large")
		}
		for n := from; n <= to; n++ {
			out = append(out, n)
			if n == to {
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, p.invalid(InvalidNumberList, name, v, "")
	}
	return out, nil
}

// GetStringList splits a required comma-separated value.
func (p *Params) GetStringList(name string) ([]string, error) {
	v, ok := p.values[name]
	if !ok || v == "" {
		return nil, p.invalid(MissingRequiredParam, name, "", "")
	}
	return strings.Split(v, ","), nil
}

// GetOptStringList splits an optional comma-separated value. Present but
// empty yields an empty, non-nil list.
func (p *Params) GetOptStringList(name string) ([]string, bool) {
	v, ok := p.values[name]
	if !ok {
		return nil, false
	}
	if v == "" {
		return []string{}, true
	}
	return strings.Split(v, ","), true
}

// GetObject parses a required inline JSON object.
func (p *Params) GetObject(name string) (map[string]any, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, p.invalid(MissingRequiredParam, name, "", "")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(v), &obj); err != nil {
		return nil, p.invalid(InvalidObject, name, v, err.Error())
	}
	if obj == nil {
		return nil, p.invalid(InvalidObject, name, v, "expected a JSON object")
	}
	return obj, nil
}

// GetOptObject parses an optional inline JSON object.
func (p *Params) GetOptObject(name string) (map[string]any, bool, error) {
	if !p.Has(name) {
		return nil, false, nil
	}
	obj, err := p.GetObject(name)
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

// GetIdentity returns a required identity-shaped value.
func (p *Params) GetIdentity(name string) (Identity, error) {
	v, err := p.GetString(name)
	if err != nil {
		return "", err
	}
	id, err := ParseIdentity(v)
	if err != nil {
		return "", p.invalid(InvalidIdentity, name, v, "")
	}
	return id, nil
}

// GetOptIdentity returns an optional identity-shaped value.
func (p *Params) GetOptIdentity(name string) (Identity, bool, error) {
	v, ok, err := p.GetOptString(name)
	if err != nil || !ok {
		return "", false, err
	}
	id, err := ParseIdentity(v)
	if err != nil {
		return "", false, p.invalid(InvalidIdentity, name, v, "")
	}
	return id, true, nil
}

// Redacted returns a copy of the values with deferred values replaced by
// RedactedPlaceholder.
func (p *Params) Redacted() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		if p.secret[k] {
			v = RedactedPlaceholder
		}
		out[k] = v
	}
	return out
}

// String renders the parameters for diagnostics with secrets redacted.
func (p *Params) String() string {
	red := p.Redacted()
	parts := make([]string, 0, len(red))
	for _, name := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%q", name, red[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Format makes every fmt verb (including %#v and %+v) use the redacted form.
func (p *Params) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, p.String())
}

// LogValue implements slog.LogValuer with secrets redacted.
func (p *Params) LogValue() slog.Value {
	red := p.Redacted()
	attrs := make([]slog.Attr, 0, len(red))
	for _, name := range p.Names() {
		attrs = append(attrs, slog.String(name, red[name]))
	}
	return slog.GroupValue(attrs...)
}
