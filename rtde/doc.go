// Package rtde implements the client side of the controller's Real-Time
// Data Exchange protocol on TCP port 30004.
//
// RTDE is a binary, frame-oriented protocol. Each frame starts with a 3-byte
// header: a 2-byte big-endian length (which includes the header itself)
// followed by a 1-byte message type. After a successful handshake the
// controller streams DataPackage frames carrying the subscribed output
// fields at a fixed rate.
//
// The handshake negotiates three things, in order:
//
//  1. Protocol version. Version 2 is requested first, with a one-shot
//     fallback to version 1.
//  2. The output recipe: the set of named fields the controller will stream.
//     If the controller rejects the full field list, negotiation degrades to
//     field-by-field probing so that older firmware with a reduced field
//     vocabulary still yields a working subscription.
//  3. The input recipe for speed-slider writes. This step is optional;
//     failure only disables RTDE speed control.
//
// A Start request completes the handshake and moves the connection to the
// Synchronized state. The Conn type does not dial or reconnect; it operates
// on a net.Conn supplied by the caller and reports any transport error to
// the caller, which owns the channel lifecycle.
package rtde
