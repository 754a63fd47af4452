// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package completion computes tab-completion candidates for shell input:
// group and command names, parameter names, and parameter values drawn from
// live state (identities of the opened wallet, known wallets and pools).
package completion

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/aplane-algo/apledger/internal/cmdspec"
	"github.com/aplane-algo/apledger/internal/command"
)

// NameLister lists record names. store.Directory and network.Directory
// satisfy it.
type NameLister interface {
	Names() ([]string, error)
}

// Provider resolves completion candidates. It never fails: any lookup error
// yields no candidates.
type Provider struct {
	registry *command.Registry
	stores   NameLister
	networks NameLister
}

// NewProvider returns a Provider. stores and networks may be nil.
func NewProvider(registry *command.Registry, stores, networks NameLister) *Provider {
	return &Provider{registry: registry, stores: stores, networks: networks}
}

// Complete returns the values of category that start with prefix, sorted.
func (p *Provider) Complete(category cmdspec.Completion, ctx *command.Context, prefix string) []string {
	var values []string
	switch category {
	case cmdspec.CompletionIdentity:
		values = identities(ctx)
	case cmdspec.CompletionStore:
		values = names(p.stores)
	case cmdspec.CompletionNetwork:
		values = names(p.networks)
	default:
		return nil
	}
	return filterPrefix(values, prefix)
}

func identities(ctx *command.Context) []string {
	if ctx == nil || ctx.OpenedStore() == nil {
		return nil
	}
	list, err := ctx.OpenedStore().ListIdentities()
	if err != nil {
		slog.Debug("identity completion failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, info := range list {
		out = append(out, info.ID)
	}
	return out
}

func names(l NameLister) []string {
	if l == nil {
		return nil
	}
	list, err := l.Names()
	if err != nil {
		slog.Debug("name completion failed", "error", err)
		return nil
	}
	return list
}

// filterPrefix is case-sensitive.
func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// CompleteLine returns full-word candidates for the word under the cursor at
// the end of line, and the length of that word (the part a candidate
// replaces). Parameter-name candidates end in "=".
func (p *Provider) CompleteLine(ctx *command.Context, line string) ([]string, int) {
	fields := strings.Fields(line)
	current := ""
	if len(fields) > 0 && !strings.HasSuffix(line, " ") && !strings.HasSuffix(line, "\t") {
		current = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}

	switch len(fields) {
	case 0:
		return p.topLevel(current), len(current)
	case 1:
		if _, isGroup := p.registry.Group(fields[0]); isGroup {
			if _, isRoot := p.registry.Lookup(command.RootGroup, fields[0]); !isRoot {
				return p.commandNames(fields[0], current), len(current)
			}
		}
	}

	res, err := p.registry.Resolve(fields)
	if err != nil {
		return nil, 0
	}
	return p.params(ctx, res.Command.Metadata, res.Args(fields), current), len(current)
}

func (p *Provider) topLevel(prefix string) []string {
	var values []string
	for _, g := range p.registry.Groups() {
		values = append(values, g.Name)
	}
	values = append(values, p.commandWords(command.RootGroup)...)
	return filterPrefix(values, prefix)
}

func (p *Provider) commandNames(group, prefix string) []string {
	return filterPrefix(p.commandWords(group), prefix)
}

func (p *Provider) commandWords(group string) []string {
	var values []string
	for _, cmd := range p.registry.Commands(group) {
		values = append(values, cmd.Name())
		values = append(values, cmd.Aliases...)
	}
	return values
}

func (p *Provider) params(ctx *command.Context, meta *cmdspec.Metadata, args []string, current string) []string {
	if name, prefix, ok := strings.Cut(current, "="); ok {
		spec, found := meta.Param(name)
		if !found || spec.Completion == cmdspec.CompletionNone {
			return nil
		}
		values := p.Complete(spec.Completion, ctx, prefix)
		for i, v := range values {
			values[i] = name + "=" + v
		}
		return values
	}

	used := make(map[string]bool)
	positional := false
	for _, arg := range args {
		if name, _, ok := strings.Cut(arg, "="); ok {
			used[name] = true
			continue
		}
		if _, isParam := meta.Param(arg); isParam && meta.IsSecret(arg) {
			used[arg] = true
			continue
		}
		positional = true
	}

	var out []string
	main, hasMain := meta.MainParam()
	if hasMain && !positional && !used[main.Name] && main.Completion != cmdspec.CompletionNone {
		out = append(out, p.Complete(main.Completion, ctx, current)...)
	}
	var named []string
	for _, spec := range meta.Params() {
		if spec.Kind == cmdspec.Main || used[spec.Name] {
			continue
		}
		named = append(named, spec.Name+"=")
	}
	return append(out, filterPrefix(named, current)...)
}
