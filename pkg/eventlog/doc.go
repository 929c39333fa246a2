// Package eventlog provides the event type and interfaces for append-only
// per-channel event storage.
//
// Core abstractions:
//   - Event: an immutable record with id, channel, creation timestamp and
//     an opaque text payload
//   - EventStore: append and ascending range-read operations over named
//     channels
//
// The store keeps no consumer state. Reads use an inclusive lower bound on
// CreatedAt, deliberately re-exposing boundary events so that consumers,
// not the store, perform de-duplication (see package cursor).
package eventlog
