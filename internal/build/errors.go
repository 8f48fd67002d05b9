package build

import "errors"

var (
	ErrBuild = errors.New("build failed")
)
