package urclient

import "errors"

var (
	// ErrNotConnected indicates an operation that needs the command channel
	// was invoked while disconnected.
	ErrNotConnected = errors.New("urclient: not connected")

	// ErrAlreadyConnected indicates Connect was called on a client that
	// already holds an open command channel. Disconnect first.
	ErrAlreadyConnected = errors.New("urclient: already connected")

	// ErrDashboardUnavailable indicates the dashboard channel is down, so
	// program control and mode queries cannot be served.
	ErrDashboardUnavailable = errors.New("urclient: dashboard channel unavailable")

	// ErrNoPrograms indicates the file-transfer side channel reached the
	// controller but found no program directory under any known location.
	ErrNoPrograms = errors.New("urclient: no program directory found")
)
