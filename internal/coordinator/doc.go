// Package coordinator runs the polling loop and availability state machine
// for a single WLED device.
//
// Availability is stale-data tolerant: when a poll fails transiently and a
// previous state exists, the coordinator keeps serving the cached state and
// only flips the availability flag once three consecutive countable failures
// have accumulated. Commands are the opposite: their failures always surface
// to the caller, and a successful command triggers an immediate out-of-band
// re-poll so the cache catches up without waiting for the next tick.
package coordinator
