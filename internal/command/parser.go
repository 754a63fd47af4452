// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"strings"

	"github.com/aplane-algo/apledger/internal/cmdspec"
)

// Tokenize splits an input line on whitespace. Double quotes group words and
// are stripped; balanced {...} and [...] are kept intact so inline JSON values
// survive (meta={"a": "b"}).
func Tokenize(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	depth := 0
	started := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		switch {
		case ch == '"' && depth == 0:
			inQuotes = !inQuotes
			started = true
		case ch == '"':
			inQuotes = !inQuotes
			current.WriteByte(ch)
		case (ch == '{' || ch == '[') && !inQuotes:
			depth++
			current.WriteByte(ch)
			started = true
		case (ch == '}' || ch == ']') && !inQuotes && depth > 0:
			depth--
			current.WriteByte(ch)
		case (ch == ' ' || ch == '\t') && !inQuotes && depth == 0:
			if started {
				parts = append(parts, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteByte(ch)
			started = true
		}
	}

	if started {
		parts = append(parts, current.String())
	}
	return parts
}

// RawArgs is the unvalidated split of the argument tokens of one command.
type RawArgs struct {
	Main    string
	HasMain bool
	Named   map[string]string
	// Prompted lists deferred parameters named without a value; the shell
	// asks for them interactively before ParseParams.
	Prompted []string
}

// SplitArgs sorts argument tokens into the positional value, name=value
// pairs and bare deferred names.
func SplitArgs(tokens []string, meta *cmdspec.Metadata) (RawArgs, error) {
	raw := RawArgs{Named: make(map[string]string)}
	seen := make(map[string]bool)

	for _, tok := range tokens {
		if name, value, ok := strings.Cut(tok, "="); ok && name != "" {
			if seen[name] {
				return raw, &ValidationError{Kind: DuplicateParam, Param: name, Command: meta.Name()}
			}
			seen[name] = true
			raw.Named[name] = value
			continue
		}

		if meta.IsSecret(tok) {
			if seen[tok] {
				return raw, &ValidationError{Kind: DuplicateParam, Param: tok, Command: meta.Name()}
			}
			seen[tok] = true
			raw.Prompted = append(raw.Prompted, tok)
			continue
		}

		if raw.HasMain {
			return raw, &ValidationError{Kind: UnexpectedPositionalArgument, Command: meta.Name()}
		}
		raw.Main = tok
		raw.HasMain = true
	}
	return raw, nil
}

// ParseParams validates raw arguments against meta and produces the
// parameter map for a single execution.
func ParseParams(raw RawArgs, meta *cmdspec.Metadata) (*Params, error) {
	params := NewParams(meta)
	name := meta.Name()

	for key, value := range raw.Named {
		if _, ok := meta.Param(key); !ok {
			return nil, &ValidationError{Kind: UnknownParam, Param: key, Command: name}
		}
		params.Set(key, value)
	}

	for _, key := range raw.Prompted {
		if _, ok := raw.Named[key]; !ok {
			return nil, &ValidationError{Kind: MissingValue, Param: key, Command: name}
		}
	}

	if raw.HasMain {
		main, ok := meta.MainParam()
		if !ok {
			return nil, &ValidationError{Kind: UnexpectedPositionalArgument, Command: name}
		}
		if params.Has(main.Name) {
			return nil, &ValidationError{Kind: DuplicateParam, Param: main.Name, Command: name}
		}
		params.Set(main.Name, raw.Main)
	}

	for _, p := range meta.Params() {
		if p.IsRequired() && !params.Has(p.Name) {
			return nil, &ValidationError{Kind: MissingRequiredParam, Param: p.Name, Command: name}
		}
	}

	return params, nil
}

// Parse is the convenience form of SplitArgs followed by ParseParams, for
// input that needs no interactive prompting.
func Parse(tokens []string, meta *cmdspec.Metadata) (*Params, error) {
	raw, err := SplitArgs(tokens, meta)
	if err != nil {
		return nil, err
	}
	return ParseParams(raw, meta)
}
