// Package cli provides the interactive FitSync command-line client.
//
// It wires configuration, the local store, the remote client, the
// connectivity oracle and the reconciler, restores the saved session and
// runs a REPL over the application services. Every command works offline:
// reads come from the local store and writes are queued until the server is
// reachable again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewApp and runREPL for details.
package cli
