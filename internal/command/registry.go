// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"fmt"
	"sort"
	"sync"
)

// Resolution is the command selected by the leading tokens of an input line.
type Resolution struct {
	Group   string
	Command *Command
	// Consumed is the number of leading tokens naming the command (1 or 2).
	Consumed int
}

// Args returns the tokens following the command name.
func (r *Resolution) Args(tokens []string) []string {
	return tokens[r.Consumed:]
}

type groupEntry struct {
	group    Group
	commands map[string]*Command // name and aliases
	primary  []*Command
}

// Registry maps group name -> command name -> command. Ungrouped commands
// live in RootGroup and are matched on the first token alone.
type Registry struct {
	groups map[string]*groupEntry
	order  []string
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	r := &Registry{groups: make(map[string]*groupEntry)}
	r.groups[RootGroup] = &groupEntry{commands: make(map[string]*Command)}
	return r
}

// AddGroup declares a command group.
func (r *Registry) AddGroup(g Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.Name == RootGroup {
		return fmt.Errorf("group name must not be empty")
	}
	if _, exists := r.groups[g.Name]; exists {
		return fmt.Errorf("group %q already registered", g.Name)
	}
	if _, exists := r.groups[RootGroup].commands[g.Name]; exists {
		return fmt.Errorf("group %q conflicts with ungrouped command", g.Name)
	}
	r.groups[g.Name] = &groupEntry{group: g, commands: make(map[string]*Command)}
	r.order = append(r.order, g.Name)
	return nil
}

// Register adds cmd to group. Use RootGroup for ungrouped commands.
func (r *Registry) Register(group string, cmd *Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.groups[group]
	if !ok {
		return fmt.Errorf("group %q is not registered", group)
	}

	names := append([]string{cmd.Name()}, cmd.Aliases...)
	for _, name := range names {
		if existing, exists := entry.commands[name]; exists {
			return fmt.Errorf("command %q conflicts with existing command %q", name, existing.Name())
		}
		if group == RootGroup {
			if _, exists := r.groups[name]; exists {
				return fmt.Errorf("command %q conflicts with group %q", name, name)
			}
		}
	}

	for _, name := range names {
		entry.commands[name] = cmd
	}
	entry.primary = append(entry.primary, cmd)
	return nil
}

// MustAddGroup is AddGroup that panics on error. Groups are declared
// statically, so a failure is a programming error.
func (r *Registry) MustAddGroup(g Group) {
	if err := r.AddGroup(g); err != nil {
		panic(err)
	}
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(group string, cmd *Command) {
	if err := r.Register(group, cmd); err != nil {
		panic(err)
	}
}

// Resolve matches the leading tokens against the registry. Matching is exact
// and case-sensitive.
func (r *Registry) Resolve(tokens []string) (*Resolution, error) {
	if len(tokens) == 0 {
		return nil, &ResolutionError{Msg: "No command given"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, ok := r.groups[RootGroup].commands[tokens[0]]; ok {
		return &Resolution{Group: RootGroup, Command: cmd, Consumed: 1}, nil
	}

	entry, ok := r.groups[tokens[0]]
	if !ok {
		return nil, &ResolutionError{Input: tokens[0]}
	}
	if len(tokens) < 2 {
		return nil, &ResolutionError{
			Input: tokens[0],
			Msg:   fmt.Sprintf("Group %q requires a command. Type 'help %s' for its commands", tokens[0], tokens[0]),
		}
	}
	cmd, ok := entry.commands[tokens[1]]
	if !ok {
		return nil, &ResolutionError{Input: tokens[0] + " " + tokens[1]}
	}
	return &Resolution{Group: tokens[0], Command: cmd, Consumed: 2}, nil
}

// Lookup returns a command by group and name (or alias).
func (r *Registry) Lookup(group, name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.groups[group]
	if !ok {
		return nil, false
	}
	cmd, ok := entry.commands[name]
	return cmd, ok
}

// Group returns a declared group by name.
func (r *Registry) Group(name string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.groups[name]
	if !ok || name == RootGroup {
		return Group{}, false
	}
	return entry.group, true
}

// Groups returns the declared groups in registration order.
func (r *Registry) Groups() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Group, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.groups[name].group)
	}
	return result
}

// Commands returns the commands of group sorted by name. Aliases are not
// listed separately.
func (r *Registry) Commands(group string) []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.groups[group]
	if !ok {
		return nil
	}
	result := make([]*Command, len(entry.primary))
	copy(result, entry.primary)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// SecretMarkers returns the substrings (" <name>=") that flag an input line
// as carrying a deferred value, across every registered command.
func (r *Registry) SecretMarkers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool)
	for _, entry := range r.groups {
		for _, cmd := range entry.primary {
			for _, name := range cmd.Metadata.SecretNames() {
				set[" "+name+"="] = true
			}
		}
	}
	markers := make([]string, 0, len(set))
	for m := range set {
		markers = append(markers, m)
	}
	sort.Strings(markers)
	return markers
}
