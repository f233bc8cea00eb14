package rtde

import "errors"

var (
	// ErrVersionRejected indicates that the controller rejected both protocol
	// version 2 and the version 1 fallback.
	ErrVersionRejected = errors.New("rtde: protocol version rejected")

	// ErrRecipeRejected indicates that no output field was accepted by the
	// controller, so no usable output recipe exists.
	ErrRecipeRejected = errors.New("rtde: output recipe rejected")

	// ErrStartRejected indicates that the controller declined the start-sync
	// request after recipe negotiation.
	ErrStartRejected = errors.New("rtde: start request rejected")

	// ErrNoInputRecipe indicates that a write was attempted but the input
	// recipe was not negotiated during the handshake.
	ErrNoInputRecipe = errors.New("rtde: input recipe not negotiated")

	// ErrNotSynchronized indicates an operation that requires a completed
	// handshake was invoked before the Synchronized state was reached.
	ErrNotSynchronized = errors.New("rtde: connection not synchronized")

	// ErrTooManyTextFrames indicates the controller kept interleaving text
	// message frames while the client waited for a handshake reply.
	ErrTooManyTextFrames = errors.New("rtde: too many interleaved text frames")

	// ErrFrameTooShort indicates a frame whose length field is smaller than
	// the 3-byte frame header.
	ErrFrameTooShort = errors.New("rtde: frame length below header size")
)
