// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/apledger/internal/cmdspec"
)

// MockHandler implements Handler interface for testing
type MockHandler struct {
	executeFunc func(ctx *Context, params *Params) error
	calls       int
}

func (h *MockHandler) Execute(ctx *Context, params *Params) error {
	h.calls++
	if h.executeFunc != nil {
		return h.executeFunc(ctx, params)
	}
	return nil
}

func newTestCommand(name string, aliases ...string) *Command {
	return &Command{
		Metadata: cmdspec.Build(name, name+" command").Finalize(),
		Aliases:  aliases,
		Handler:  &MockHandler{},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustAddGroup(Group{Name: "pool", Help: "Pool management commands"})
	r.MustAddGroup(Group{Name: "wallet", Help: "Wallet management commands"})
	r.MustRegister("pool", newTestCommand("list"))
	r.MustRegister("pool", newTestCommand("connect"))
	r.MustRegister("wallet", newTestCommand("list"))
	r.MustRegister(RootGroup, newTestCommand("exit", "quit"))
	r.MustRegister(RootGroup, newTestCommand("about"))
	return r
}

func TestRegistry_Resolve(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name      string
		tokens    []string
		wantGroup string
		wantCmd   string
		consumed  int
	}{
		{"grouped", []string{"pool", "list"}, "pool", "list", 2},
		{"grouped with args", []string{"pool", "connect", "sandbox", "timeout=5"}, "pool", "connect", 2},
		{"same name other group", []string{"wallet", "list"}, "wallet", "list", 2},
		{"root", []string{"about"}, RootGroup, "about", 1},
		{"root alias", []string{"quit"}, RootGroup, "exit", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.tokens)
			if err != nil {
				t.Fatalf("Resolve(%v) error = %v", tt.tokens, err)
			}
			if res.Group != tt.wantGroup {
				t.Errorf("Group = %q, want %q", res.Group, tt.wantGroup)
			}
			if res.Command.Name() != tt.wantCmd {
				t.Errorf("Command = %q, want %q", res.Command.Name(), tt.wantCmd)
			}
			if res.Consumed != tt.consumed {
				t.Errorf("Consumed = %d, want %d", res.Consumed, tt.consumed)
			}
		})
	}
}

func TestRegistry_ResolveFailures(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name   string
		tokens []string
	}{
		{"missing command in group", []string{"pool", "missing"}},
		{"unknown group", []string{"ledgers", "list"}},
		{"group only", []string{"pool"}},
		{"case sensitive", []string{"Pool", "list"}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.tokens)
			if err == nil {
				t.Fatalf("Resolve(%v) = %v, want error", tt.tokens, res.Command.Name())
			}
			var rerr *ResolutionError
			if !errors.As(err, &rerr) {
				t.Errorf("error type = %T, want *ResolutionError", err)
			}
		})
	}
}

func TestRegistry_RegisterConflicts(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Register("pool", newTestCommand("list")); err == nil {
		t.Error("duplicate command in group should fail")
	}
	if err := r.Register(RootGroup, newTestCommand("bye", "quit")); err == nil {
		t.Error("alias colliding with existing command should fail")
	}
	if err := r.Register(RootGroup, newTestCommand("pool")); err == nil {
		t.Error("root command colliding with a group should fail")
	}
	if err := r.AddGroup(Group{Name: "about"}); err == nil {
		t.Error("group colliding with a root command should fail")
	}
	if err := r.AddGroup(Group{Name: "pool"}); err == nil {
		t.Error("duplicate group should fail")
	}
	if err := r.Register("ledger", newTestCommand("status")); err == nil {
		t.Error("unknown group should fail")
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := newTestRegistry(t)
	defer func() {
		if recover() == nil {
			t.Error("MustRegister() should panic on duplicate")
		}
	}()
	r.MustRegister("pool", newTestCommand("list"))
}

func TestRegistry_GroupsAndCommands(t *testing.T) {
	r := newTestRegistry(t)

	var groups []string
	for _, g := range r.Groups() {
		groups = append(groups, g.Name)
	}
	if diff := cmp.Diff([]string{"pool", "wallet"}, groups); diff != "" {
		t.Errorf("Groups() mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, c := range r.Commands(RootGroup) {
		names = append(names, c.Name())
	}
	if diff := cmp.Diff([]string{"about", "exit"}, names); diff != "" {
		t.Errorf("Commands(root) mismatch (-want +got):\n%s", diff)
	}

	if r.Commands("missing") != nil {
		t.Error("Commands() of unknown group should be nil")
	}
}

func TestRegistry_SecretMarkers(t *testing.T) {
	r := NewRegistry()
	r.MustAddGroup(Group{Name: "wallet"})
	r.MustRegister("wallet", &Command{
		Metadata: cmdspec.Build("open", "Open wallet").
			AddMainParam("name", "Wallet name").
			AddRequiredDeferredParam("key", "Wallet key").
			AddOptionalDeferredParam("rekey", "New key").
			Finalize(),
		Handler: &MockHandler{},
	})
	r.MustRegister("wallet", &Command{
		Metadata: cmdspec.Build("delete", "Delete wallet").
			AddMainParam("name", "Wallet name").
			AddRequiredDeferredParam("key", "Wallet key").
			Finalize(),
		Handler: &MockHandler{},
	})

	want := []string{" key=", " rekey="}
	if diff := cmp.Diff(want, r.SecretMarkers()); diff != "" {
		t.Errorf("SecretMarkers() mismatch (-want +got):\n%s", diff)
	}
}
