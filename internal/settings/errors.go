package settings

import "errors"

var (
	ErrSettings = errors.New("invalid settings")
)
