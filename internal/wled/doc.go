// Package wled provides an HTTP client for the WLED JSON API.
//
// WLED controllers are constrained embedded devices on flaky home networks,
// so the client is built around three layers: a single-attempt transport
// with connect and total timeouts, a retry policy that replays transient
// failures with capped exponential backoff, and a response validator that
// checks both protocol correctness and whether a command was actually
// applied by the device.
//
// # Usage Example
//
//	client := wled.NewClient("192.168.1.40")
//	defer client.Close()
//
//	state, err := client.GetState(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bri := 128
//	_, err = client.TurnOn(ctx, wled.TurnOnOptions{Brightness: &bri})
//
// # Error Handling
//
// All failures are reported as *DeviceError with a Kind discriminant
// (timeout, network, http, auth, invalid response, invalid json, command,
// validation) plus host, operation and status context. Timeouts, network
// failures and 5xx responses are retried inside the client; everything else
// surfaces on the first attempt. Use IsRetryable, IsAuthError and friends,
// or errors.As with *DeviceError, to branch on the failure class.
//
// # Command Verification
//
// State-mutating calls compare the device's response against the command
// that was sent. A mismatch on a critical field (on, bri) fails with a
// command error; other fields may legitimately differ after the device
// debounces or clamps them and are only logged.
//
// # Concurrency
//
// A Client holds one keep-alive connection and expects a single caller at a
// time, matching the device's limited resources. The poll coordinator in
// internal/coordinator provides that serialization.
package wled
