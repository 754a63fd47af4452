// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aplane-algo/apledger/internal/network"
	"github.com/aplane-algo/apledger/internal/store"
)

// DefaultPrompt is the prompt prefix used when none is configured.
const DefaultPrompt = "apledger"

// DefaultProtocolVersion is the protocol version used for new connections.
const DefaultProtocolVersion = 2

// PendingTransaction is a built but not yet submitted transaction, kept as
// text (base64 msgpack). Network is the pool it was built against and is
// cleared when that pool is disconnected.
type PendingTransaction struct {
	Text    string
	Network string
	Signed  bool
}

// Context is the session state shared by every command invocation. It is
// owned by the shell and only mutated through its methods.
type Context struct {
	identity        Identity
	store           store.Handle
	network         network.Handle
	pending         *PendingTransaction
	prompt          string
	exitRequested   bool
	protocolVersion int
	agreementAck    *bool
}

// NewContext creates a context with the given prompt prefix.
func NewContext(prompt string) *Context {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Context{
		prompt:          prompt,
		protocolVersion: DefaultProtocolVersion,
	}
}

// EnsureOpenedStore returns the opened wallet or a precondition error.
func (c *Context) EnsureOpenedStore() (store.Handle, error) {
	if c.store == nil {
		return nil, &PreconditionError{Msg: "There is no opened wallet now"}
	}
	return c.store, nil
}

// EnsureConnectedNetwork returns the connected pool or a precondition error.
func (c *Context) EnsureConnectedNetwork() (network.Handle, error) {
	if c.network == nil {
		return nil, &PreconditionError{Msg: "There is no opened pool now"}
	}
	return c.network, nil
}

// EnsureActiveIdentity returns the active identity. It fails when no wallet
// is open, even if an identity was selected earlier.
func (c *Context) EnsureActiveIdentity() (Identity, error) {
	if c.store == nil {
		return "", &PreconditionError{Msg: "There is no opened wallet now"}
	}
	if c.identity == "" {
		return "", &PreconditionError{Msg: "There is no active did"}
	}
	return c.identity, nil
}

func (c *Context) OpenedStore() store.Handle        { return c.store }
func (c *Context) ConnectedNetwork() network.Handle { return c.network }

// ActiveIdentity returns the selected identity, or "" when none is active.
func (c *Context) ActiveIdentity() Identity {
	if c.store == nil {
		return ""
	}
	return c.identity
}

// SetOpenedStore installs h as the opened wallet. Any previous identity
// belonged to another wallet and is cleared.
func (c *Context) SetOpenedStore(h store.Handle) {
	c.store = h
	c.identity = ""
}

// TakeOpenedStore removes the opened wallet and hands ownership to the caller.
func (c *Context) TakeOpenedStore() store.Handle {
	h := c.store
	c.store = nil
	c.identity = ""
	return h
}

// ResetOpenedStore forgets the opened wallet and the active identity.
func (c *Context) ResetOpenedStore() {
	c.store = nil
	c.identity = ""
}

// SetConnectedNetwork installs h as the connected pool.
func (c *Context) SetConnectedNetwork(h network.Handle) {
	if c.network != nil && (h == nil || c.network.Name() != h.Name()) {
		c.detachNetworkState()
	}
	c.network = h
}

// TakeConnectedNetwork removes the connected pool and hands ownership to the
// caller.
func (c *Context) TakeConnectedNetwork() network.Handle {
	h := c.network
	c.network = nil
	c.detachNetworkState()
	return h
}

// ResetConnectedNetwork forgets the connected pool.
func (c *Context) ResetConnectedNetwork() {
	c.network = nil
	c.detachNetworkState()
}

func (c *Context) detachNetworkState() {
	if c.pending != nil {
		c.pending.Network = ""
	}
	c.agreementAck = nil
}

func (c *Context) SetActiveIdentity(id Identity) { c.identity = id }
func (c *Context) ResetActiveIdentity()          { c.identity = "" }

// SetPendingTransaction buffers a transaction built against the connected
// pool, replacing any previous one.
func (c *Context) SetPendingTransaction(text string, signed bool) {
	pt := &PendingTransaction{Text: text, Signed: signed}
	if c.network != nil {
		pt.Network = c.network.Name()
	}
	c.pending = pt
}

// PendingTransaction returns the buffered transaction, or nil.
func (c *Context) PendingTransaction() *PendingTransaction {
	if c.pending == nil {
		return nil
	}
	pt := *c.pending
	return &pt
}

// TakePendingTransaction removes and returns the buffered transaction.
func (c *Context) TakePendingTransaction() *PendingTransaction {
	pt := c.pending
	c.pending = nil
	return pt
}

func (c *Context) Prompt() string { return c.prompt }

// SetPrompt changes the prompt prefix. An empty value restores the default.
func (c *Context) SetPrompt(prompt string) {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	c.prompt = prompt
}

func (c *Context) ProtocolVersion() int     { return c.protocolVersion }
func (c *Context) SetProtocolVersion(v int) { c.protocolVersion = v }

// AgreementAcknowledged returns the cached acceptance of the connected pool's
// agreement and whether a decision has been recorded.
func (c *Context) AgreementAcknowledged() (accepted bool, known bool) {
	if c.agreementAck == nil {
		return false, false
	}
	return *c.agreementAck, true
}

func (c *Context) SetAgreementAcknowledged(accepted bool) {
	c.agreementAck = &accepted
}

func (c *Context) SetExit()            { c.exitRequested = true }
func (c *Context) ExitRequested() bool { return c.exitRequested }

// PromptLine renders the shell prompt from the current state:
// prompt[:wallet][:pool][:identity]>
func (c *Context) PromptLine() string {
	var b strings.Builder
	b.WriteString(c.prompt)
	if c.store != nil {
		b.WriteString(":" + c.store.Name())
	}
	if c.network != nil {
		b.WriteString(":" + c.network.Name())
	}
	if id := c.ActiveIdentity(); id != "" {
		b.WriteString(":" + id.Short())
	}
	b.WriteString("> ")
	return b.String()
}

// Close releases the opened wallet and the connected pool. Both are attempted;
// the joined errors are returned.
func (c *Context) Close() error {
	var errs []error
	if h := c.TakeOpenedStore(); h != nil {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close wallet %q: %w", h.Name(), err))
		}
	}
	if h := c.TakeConnectedNetwork(); h != nil {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pool %q: %w", h.Name(), err))
		}
	}
	return errors.Join(errs...)
}
