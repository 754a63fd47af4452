// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package cmdspec

import "fmt"

// Metadata is the immutable description of a command.
type Metadata struct {
	name     string
	help     string
	params   []ParamSpec
	examples []string
}

func (m *Metadata) Name() string { return m.name }
func (m *Metadata) Help() string { return m.help }

// Params returns a copy of the declared parameters in declaration order.
func (m *Metadata) Params() []ParamSpec {
	out := make([]ParamSpec, len(m.params))
	copy(out, m.params)
	return out
}

// Examples returns a copy of the usage examples.
func (m *Metadata) Examples() []string {
	out := make([]string, len(m.examples))
	copy(out, m.examples)
	return out
}

// Param looks a parameter up by name.
func (m *Metadata) Param(name string) (ParamSpec, bool) {
	for _, p := range m.params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// MainParam returns the positional parameter, if the command declares one.
func (m *Metadata) MainParam() (ParamSpec, bool) {
	for _, p := range m.params {
		if p.Kind == Main {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// SecretNames returns the names of all deferred parameters.
func (m *Metadata) SecretNames() []string {
	var names []string
	for _, p := range m.params {
		if p.Kind.IsSecret() {
			names = append(names, p.Name)
		}
	}
	return names
}

// IsSecret reports whether name is a deferred parameter of this command.
func (m *Metadata) IsSecret(name string) bool {
	p, ok := m.Param(name)
	return ok && p.Kind.IsSecret()
}

// Usage renders a one-line usage string such as
// "open <name> key=<key> [rekey=<rekey>]".
func (m *Metadata) Usage() string {
	usage := m.name
	for _, p := range m.params {
		var part string
		switch p.Kind {
		case Main:
			part = "<" + p.Name + ">"
			if p.Optional {
				part = "[" + part + "]"
			}
		case Required, Deferred:
			part = p.Name + "=<" + p.Name + ">"
		default:
			part = "[" + p.Name + "=<" + p.Name + ">]"
		}
		usage += " " + part
	}
	return usage
}

// Builder accumulates parameter declarations. Specs are static program data,
// so declaration mistakes panic instead of returning errors.
type Builder struct {
	meta Metadata
	seen map[string]bool
}

// Build starts a metadata declaration for the named command.
func Build(name, help string) *Builder {
	return &Builder{
		meta: Metadata{name: name, help: help},
		seen: make(map[string]bool),
	}
}

func (b *Builder) add(p ParamSpec) *Builder {
	if b.seen[p.Name] {
		panic(fmt.Sprintf("command %q: duplicate parameter %q", b.meta.name, p.Name))
	}
	if p.Kind == Main {
		if _, exists := b.meta.MainParam(); exists {
			panic(fmt.Sprintf("command %q: more than one main parameter", b.meta.name))
		}
	}
	b.seen[p.Name] = true
	b.meta.params = append(b.meta.params, p)
	return b
}

func (b *Builder) AddMainParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Main, Help: help})
}

func (b *Builder) AddOptionalMainParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Main, Help: help, Optional: true})
}

func (b *Builder) AddMainParamWithDynamicCompletion(name, help string, c Completion) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Main, Help: help, Completion: c})
}

func (b *Builder) AddRequiredParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Required, Help: help})
}

func (b *Builder) AddRequiredParamWithDynamicCompletion(name, help string, c Completion) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Required, Help: help, Completion: c})
}

func (b *Builder) AddOptionalParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Optional, Help: help})
}

func (b *Builder) AddOptionalParamWithDynamicCompletion(name, help string, c Completion) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Optional, Help: help, Completion: c})
}

func (b *Builder) AddRequiredDeferredParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: Deferred, Help: help})
}

func (b *Builder) AddOptionalDeferredParam(name, help string) *Builder {
	return b.add(ParamSpec{Name: name, Kind: OptionalDeferred, Help: help})
}

func (b *Builder) AddExample(example string) *Builder {
	b.meta.examples = append(b.meta.examples, example)
	return b
}

// Finalize returns the assembled metadata. The builder must not be reused.
func (b *Builder) Finalize() *Metadata {
	m := b.meta
	m.params = append([]ParamSpec(nil), b.meta.params...)
	m.examples = append([]string(nil), b.meta.examples...)
	return &m
}
