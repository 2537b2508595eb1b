package roster

import "errors"

// ErrDataIntegrity marks assignment data that could not be decoded.
var ErrDataIntegrity = errors.New("assignment data integrity error")
