// Package cursor implements the client-side incremental-consumption
// protocol over the event log's pull API.
//
// The event log keeps no consumer offsets, so each consumer derives its own
// resume point: a Watermark pairing the newest timestamp it has fully
// applied with the set of event ids seen at exactly that timestamp. The id
// set exists because timestamps have finite resolution and several events
// can share one; ids alone carry no ordering signal, so neither half of the
// pair suffices on its own.
//
// A Consumer polls one channel on a fixed interval, asking for events at or
// after the watermark timestamp. The inclusive lower bound re-delivers
// boundary events on purpose; the consumer skips the ones its watermark
// already covers and applies the rest through an idempotent callback.
// Delivery is therefore at-least-once and correctness rests on idempotent
// application, not on broker-side de-duplication.
package cursor
