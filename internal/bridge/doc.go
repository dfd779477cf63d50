// Package bridge exposes a coordinated WLED device to a home-automation host.
//
// The HTTP surface mirrors the coordinator's contract: GET /api/state always
// returns the last known state with an availability flag (stale during
// transient outages), while POST command endpoints surface device failures
// directly as error statuses. Connected WebSocket clients on /ws receive a
// state push after every poll and command.
package bridge
