// Package domain is the schema layer shared by the client and the server.
//
// Payloads cross the network and the local cache as raw JSON objects. Every
// payload that enters typed code goes through one of the Parse functions,
// which decode into a permissive wire shape, check required fields, apply
// explicit defaults and return a fully populated record or a
// *ValidationError naming the offending field.
//
// The set of collections is closed: users, posts and nutrition.
package domain
