package remote

import "errors"

var (
	// ErrUnsupportedVersion means the peers' protocol majors differ.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrProtocol means the peer sent an unexpected message.
	ErrProtocol = errors.New("protocol error")

	// ErrProbeBusy means another client owns the probe.
	ErrProbeBusy = errors.New("probe in use by another client")
)
