package command

import "errors"

var (
	ErrCommand = errors.New("command failed")
)
