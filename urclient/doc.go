// Package urclient is the top-level control-plane client for a Universal
// Robots style arm controller.
//
// A Client speaks four independent TCP protocols to the same physical
// controller:
//
//   - the script port (default 30002): fire-and-forget URScript text,
//   - the feedback port (30003): fixed-cadence binary telemetry frames,
//   - the dashboard port (29999): line-oriented command/response text,
//   - the RTDE port (30004): negotiated binary field subscription.
//
// Only the script port is mandatory. The other three degrade independently:
// a failed dial or a mid-session transport error marks that one channel
// down and the rest keep working. A dropped channel stays down until a full
// Disconnect/Connect cycle; the client never reconnects on its own.
//
// Telemetry from the feedback and RTDE listeners, and status polled over
// the dashboard, converge on one shared snapshot. Writers replace it
// atomically and readers always receive a copy, so a partially updated
// snapshot can never be observed. Subscribe attaches a fan-out feed that
// samples the snapshot at a fixed cadence for UI-style consumers.
package urclient
