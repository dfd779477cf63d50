// Package tui implements the live watch dashboard.
//
// The dashboard polls the device through the coordinator on a short interval
// and renders power, brightness, effect and availability, with keybindings
// for power toggle and brightness. Availability is shown exactly as the
// coordinator reports it: stale data with a degraded flag during transient
// outages, unavailable only after the failure threshold.
package tui
