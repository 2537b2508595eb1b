package connectivity

import "errors"

// ErrOffline is returned for writes attempted without connectivity.
var ErrOffline = errors.New("offline: writes are disabled until the connection is restored")
