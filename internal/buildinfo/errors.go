package buildinfo

import "errors"

var (
	ErrRevision = errors.New("revision lookup failed")
	ErrClock    = errors.New("clock lookup failed")
	ErrVersion  = errors.New("version lookup failed")
)
