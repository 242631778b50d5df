// Package client contains the client's gateway to the remote store and the
// bootstrap of its local database.
//
// # Overview
//
// The package provides:
//  1. The RemoteStore contract the reconciler depends on (GetByID,
//     QueryOrdered, Write, Delete) and the wider Client API used by the CLI
//     (Register, Login, Ping, media presigning).
//  2. A gRPC implementation (GRPCClient) that injects the access token via
//     an interceptor, refreshes expired tokens once, bounds every unary call
//     with a timeout and maps status codes to sentinel errors.
//  3. InitDatabase and RunMigrations, which open the SQLite file and apply
//     the embedded goose migrations.
//
// # Error Handling
//
// Server failures wrap one of ErrUnavailable, ErrUnauthorized,
// ErrPermissionDenied, ErrInvalidArgument, ErrNotFound or ErrConflict; match
// them with errors.Is.
package client
