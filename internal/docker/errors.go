package docker

import "errors"

var (
	ErrDocker  = errors.New("docker error")
	ErrBuild   = errors.New("docker build failed")
	ErrPublish = errors.New("docker publish failed")
	ErrSave    = errors.New("docker save failed")
)
