// Package rpc defines the fitsync.v1.DocumentService gRPC contract: request
// and response messages, a JSON codec registered under the "json" content
// subtype, the service descriptor, and client/server bindings.
//
// Messages are plain Go structs; importing this package registers the codec
// for both sides, and clients select it with grpc.CallContentSubtype(CodecName).
package rpc
