// Package cli implements the interactive vault shell: a REPL over the
// register/login/add-note/add-tag/list/show/delete/sync commands, wiring
// together internal/keys, internal/protocol, internal/payloads,
// internal/sync and internal/storage into one runnable App.
package cli
