// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

// Command registry initialization

import (
	"fmt"

	"github.com/aplane-algo/apledger/internal/cmdspec"
	"github.com/aplane-algo/apledger/internal/command"
)

const (
	groupWallet = "wallet"
	groupDID    = "did"
	groupPool   = "pool"
	groupLedger = "ledger"
)

// mustRegister registers a command and panics if there's an error.
// Used during initialization where registration errors are programming bugs.
func mustRegister(registry *command.Registry, group string, meta *cmdspec.Metadata, handler command.HandlerFunc, aliases ...string) {
	cmd := &command.Command{Metadata: meta, Aliases: aliases, Handler: handler}
	if err := registry.Register(group, cmd); err != nil {
		panic(fmt.Sprintf("failed to register command %q: %v", meta.Name(), err))
	}
}

// initCommandRegistry initializes the command registry with all shell commands
func (a *App) initCommandRegistry() *command.Registry {
	registry := command.NewRegistry()

	registry.MustAddGroup(command.Group{Name: groupWallet, Help: "Manage identity wallets"})
	registry.MustAddGroup(command.Group{Name: groupDID, Help: "Manage identities of the opened wallet"})
	registry.MustAddGroup(command.Group{Name: groupPool, Help: "Manage and connect to ledger pools"})
	registry.MustAddGroup(command.Group{Name: groupLedger, Help: "Build, sign and submit transactions"})

	a.registerCommonCommands(registry)
	a.registerWalletCommands(registry)
	a.registerDIDCommands(registry)
	a.registerPoolCommands(registry)
	a.registerLedgerCommands(registry)

	return registry
}

// Ungrouped commands

func (a *App) registerCommonCommands(registry *command.Registry) {
	mustRegister(registry, command.RootGroup,
		cmdspec.Build("about", "Show version and configuration").Finalize(),
		a.cmdAbout)

	mustRegister(registry, command.RootGroup,
		cmdspec.Build("show", "Print the content of a file").
			AddMainParam("file", "Path to the file").
			AddExample("show ./transaction.txt").
			Finalize(),
		a.cmdShow)

	mustRegister(registry, command.RootGroup,
		cmdspec.Build("prompt", "Change the command prompt").
			AddMainParam("prompt", "New prompt prefix").
			AddExample("prompt ledger").
			Finalize(),
		a.cmdPrompt)

	mustRegister(registry, command.RootGroup,
		cmdspec.Build("log-level", "Show or change the log level").
			AddOptionalMainParam("level", "One of debug, info, warn, error").
			AddExample("log-level debug").
			Finalize(),
		a.cmdLogLevel)

	mustRegister(registry, command.RootGroup,
		cmdspec.Build(command.HelpCommand, "Show help for groups and commands").
			AddOptionalMainParam("topic", "Group or ungrouped command").
			AddOptionalParam("command", "Command of the group").
			AddExample("help wallet").
			AddExample("help wallet open").
			Finalize(),
		a.cmdHelp)

	mustRegister(registry, command.RootGroup,
		cmdspec.Build("exit", "Exit the shell").Finalize(),
		a.cmdExit, "quit")
}

func (a *App) registerWalletCommands(registry *command.Registry) {
	mustRegister(registry, groupWallet,
		cmdspec.Build("create", "Create and attach a new wallet").
			AddMainParam("name", "Identifier of the new wallet").
			AddRequiredDeferredParam("key", "Key protecting the wallet").
			AddOptionalParam("key_derivation_method", "argon2m (default), argon2i or raw").
			AddOptionalParam("storage_type", "Storage backend (default)").
			AddOptionalParam("storage_config", "Storage configuration as a JSON object").
			AddOptionalDeferredParam("storage_credentials", "Storage credentials as a JSON object").
			AddExample("wallet create w1 key").
			AddExample(`wallet create w1 key storage_config={"path":"/srv/wallets"}`).
			Finalize(),
		a.cmdWalletCreate)

	mustRegister(registry, groupWallet,
		cmdspec.Build("attach", "Attach an existing wallet to the shell").
			AddMainParam("name", "Identifier of the wallet").
			AddOptionalParam("storage_type", "Storage backend (default)").
			AddOptionalParam("storage_config", "Storage configuration as a JSON object").
			AddExample(`wallet attach w1 storage_config={"path":"/srv/wallets"}`).
			Finalize(),
		a.cmdWalletAttach)

	mustRegister(registry, groupWallet,
		cmdspec.Build("detach", "Detach a wallet from the shell without deleting it").
			AddMainParamWithDynamicCompletion("name", "Identifier of the wallet", cmdspec.CompletionStore).
			Finalize(),
		a.cmdWalletDetach)

	mustRegister(registry, groupWallet,
		cmdspec.Build("open", "Open an attached wallet").
			AddMainParamWithDynamicCompletion("name", "Identifier of the wallet", cmdspec.CompletionStore).
			AddRequiredDeferredParam("key", "Key protecting the wallet").
			AddOptionalParam("key_derivation_method", "argon2m, argon2i or raw (default: as created)").
			AddOptionalDeferredParam("rekey", "New key to protect the wallet with").
			AddOptionalParam("rekey_derivation_method", "Derivation method for rekey").
			AddOptionalDeferredParam("storage_credentials", "Storage credentials as a JSON object").
			AddExample("wallet open w1 key").
			AddExample("wallet open w1 key rekey").
			Finalize(),
		a.cmdWalletOpen)

	mustRegister(registry, groupWallet,
		cmdspec.Build("close", "Close the opened wallet").Finalize(),
		a.cmdWalletClose)

	mustRegister(registry, groupWallet,
		cmdspec.Build("delete", "Delete a wallet and its identities").
			AddMainParamWithDynamicCompletion("name", "Identifier of the wallet", cmdspec.CompletionStore).
			AddRequiredDeferredParam("key", "Key protecting the wallet").
			AddOptionalParam("key_derivation_method", "argon2m, argon2i or raw (default: as created)").
			Finalize(),
		a.cmdWalletDelete)

	mustRegister(registry, groupWallet,
		cmdspec.Build("list", "List attached wallets").Finalize(),
		a.cmdWalletList)

	mustRegister(registry, groupWallet,
		cmdspec.Build("export", "Export the identities of the opened wallet to a file").
			AddRequiredParam("export_path", "Path of the export file").
			AddRequiredDeferredParam("export_key", "Key protecting the export file").
			AddOptionalParam("export_key_derivation_method", "argon2m (default), argon2i or raw").
			AddExample("wallet export export_path=./w1.export export_key").
			Finalize(),
		a.cmdWalletExport)

	mustRegister(registry, groupWallet,
		cmdspec.Build("import", "Create a wallet from an export file").
			AddMainParam("name", "Identifier of the new wallet").
			AddRequiredDeferredParam("key", "Key protecting the new wallet").
			AddOptionalParam("key_derivation_method", "argon2m (default), argon2i or raw").
			AddRequiredParam("export_path", "Path of the export file").
			AddRequiredDeferredParam("export_key", "Key protecting the export file").
			AddExample("wallet import w2 key export_path=./w1.export export_key").
			Finalize(),
		a.cmdWalletImport)
}

func (a *App) registerDIDCommands(registry *command.Registry) {
	mustRegister(registry, groupDID,
		cmdspec.Build("new", "Create a new identity in the opened wallet").
			AddOptionalParam("did", "Identity to create; requires the seed it derives from").
			AddOptionalDeferredParam("seed", "Mnemonic, hex or 32-byte seed (random if omitted)").
			AddOptionalParam("method", "Qualify the identity as did:<method>:<address>").
			AddOptionalParam("metadata", "Free-form metadata").
			AddExample("did new").
			AddExample("did new seed method=sov metadata=alice").
			Finalize(),
		a.cmdDIDNew)

	mustRegister(registry, groupDID,
		cmdspec.Build("import", "Import identities from a JSON file").
			AddMainParam("file", `Path to a file of {"version":1,"dids":[{"did":...,"seed":...}]}`).
			Finalize(),
		a.cmdDIDImport)

	mustRegister(registry, groupDID,
		cmdspec.Build("use", "Select the active identity").
			AddMainParamWithDynamicCompletion("did", "Identity to use", cmdspec.CompletionIdentity).
			Finalize(),
		a.cmdDIDUse)

	mustRegister(registry, groupDID,
		cmdspec.Build("list", "List identities of the opened wallet").Finalize(),
		a.cmdDIDList)

	mustRegister(registry, groupDID,
		cmdspec.Build("qualify", "Qualify an identity with a method").
			AddMainParamWithDynamicCompletion("did", "Identity to qualify", cmdspec.CompletionIdentity).
			AddRequiredParam("method", "Method name").
			AddExample("did qualify VCE5... method=sov").
			Finalize(),
		a.cmdDIDQualify)

	mustRegister(registry, groupDID,
		cmdspec.Build("rotate-key", "Rekey the active identity to a new key on the ledger").
			AddOptionalDeferredParam("seed", "Seed of the new key (random if omitted)").
			Finalize(),
		a.cmdDIDRotateKey)

	mustRegister(registry, groupDID,
		cmdspec.Build("set-metadata", "Set metadata of the active identity").
			AddRequiredParam("metadata", "Free-form metadata").
			Finalize(),
		a.cmdDIDSetMetadata)
}

func (a *App) registerPoolCommands(registry *command.Registry) {
	mustRegister(registry, groupPool,
		cmdspec.Build("create", "Create a pool configuration").
			AddMainParam("name", "Identifier of the pool").
			AddRequiredParam("algod_server", "algod REST endpoint").
			AddOptionalParam("algod_token", "algod API token").
			AddOptionalParam("genesis_id", "Genesis ID the node must report").
			AddOptionalParam("agreement_text", "Transaction author agreement text").
			AddOptionalParam("agreement_version", "Transaction author agreement version").
			AddExample("pool create sandbox algod_server=http://localhost:4001 algod_token=aaaa...").
			Finalize(),
		a.cmdPoolCreate)

	mustRegister(registry, groupPool,
		cmdspec.Build("connect", "Connect to a pool").
			AddMainParamWithDynamicCompletion("name", "Identifier of the pool", cmdspec.CompletionNetwork).
			AddOptionalParam("protocol-version", "Protocol version (default: session setting)").
			AddOptionalParam("timeout", "Connection timeout in seconds").
			AddOptionalParam("accept-agreement", "Accept the pool's transaction author agreement").
			AddExample("pool connect sandbox accept-agreement=true").
			Finalize(),
		a.cmdPoolConnect)

	mustRegister(registry, groupPool,
		cmdspec.Build("disconnect", "Disconnect from the connected pool").Finalize(),
		a.cmdPoolDisconnect)

	mustRegister(registry, groupPool,
		cmdspec.Build("refresh", "Refresh the ledger state of the connected pool").Finalize(),
		a.cmdPoolRefresh)

	mustRegister(registry, groupPool,
		cmdspec.Build("list", "List pool configurations").Finalize(),
		a.cmdPoolList)

	mustRegister(registry, groupPool,
		cmdspec.Build("delete", "Delete a pool configuration").
			AddMainParamWithDynamicCompletion("name", "Identifier of the pool", cmdspec.CompletionNetwork).
			Finalize(),
		a.cmdPoolDelete)

	mustRegister(registry, groupPool,
		cmdspec.Build("set-protocol-version", "Set the protocol version used for new connections").
			AddMainParam("version", "1 or 2").
			Finalize(),
		a.cmdPoolSetProtocolVersion)

	mustRegister(registry, groupPool,
		cmdspec.Build("show-taa", "Show the transaction author agreement of the connected pool").Finalize(),
		a.cmdPoolShowTAA)
}

func (a *App) registerLedgerCommands(registry *command.Registry) {
	mustRegister(registry, groupLedger,
		cmdspec.Build("payment", "Build a payment from the active identity").
			AddRequiredParamWithDynamicCompletion("to", "Receiver", cmdspec.CompletionIdentity).
			AddRequiredParam("amount", "Amount in Algos").
			AddOptionalParam("note", "Transaction note").
			AddOptionalParam("fee", "Flat fee in microAlgos").
			AddOptionalParam("send", "Sign and submit immediately (default true)").
			AddExample("ledger payment to=VCE5... amount=1.5").
			AddExample("ledger payment to=VCE5... amount=0.25 note=rent send=false").
			Finalize(),
		a.cmdLedgerPayment)

	mustRegister(registry, groupLedger,
		cmdspec.Build("sign", "Sign a transaction with the active identity").
			AddOptionalParam("txn", "Transaction text (default: pending transaction)").
			Finalize(),
		a.cmdLedgerSign)

	mustRegister(registry, groupLedger,
		cmdspec.Build("submit", "Submit a signed transaction to the connected pool").
			AddOptionalParam("txn", "Signed transaction text (default: pending transaction)").
			Finalize(),
		a.cmdLedgerSubmit)

	mustRegister(registry, groupLedger,
		cmdspec.Build("load-transaction", "Make a transaction the pending transaction").
			AddMainParam("txn", "Transaction as base64 msgpack or SDK JSON").
			Finalize(),
		a.cmdLedgerLoadTransaction)

	mustRegister(registry, groupLedger,
		cmdspec.Build("get-pending", "Show the pending transaction").Finalize(),
		a.cmdLedgerGetPending)

	mustRegister(registry, groupLedger,
		cmdspec.Build("status", "Show the status of the connected pool").Finalize(),
		a.cmdLedgerStatus)
}
