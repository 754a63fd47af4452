// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/completion"
)

// AutoCompleter adapts a completion.Provider to readline.AutoCompleter.
type AutoCompleter struct {
	provider *completion.Provider
	ctx      *command.Context
}

// NewAutoCompleter completes against the live state of ctx.
func NewAutoCompleter(provider *completion.Provider, ctx *command.Context) *AutoCompleter {
	return &AutoCompleter{provider: provider, ctx: ctx}
}

// Do implements readline.AutoCompleter. readline appends without deleting,
// so each suggestion is the remaining part after what's been typed.
func (a *AutoCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	candidates, n := a.provider.CompleteLine(a.ctx, text)
	if len(candidates) == 0 {
		return nil, 0
	}

	suggestions := make([][]rune, 0, len(candidates))
	for _, c := range candidates {
		rest := c[n:]
		if !strings.HasSuffix(c, "=") {
			rest += " "
		}
		suggestions = append(suggestions, []rune(rest))
	}
	return suggestions, utf8.RuneCountInString(text[len(text)-n:])
}
